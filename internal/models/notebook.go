package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Language is the execution language of a notebook cell.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageCpp        Language = "cpp"
	LanguageJavaScript Language = "javascript"
)

const (
	DefaultNotebookTitle = "Untitled Notebook"
	defaultCellCode      = "print('Hello from Python!')"
)

// ParseLanguage resolves a language name or one of its aliases, case-insensitively.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py":
		return LanguagePython, true
	case "cpp", "c++":
		return LanguageCpp, true
	case "javascript", "js":
		return LanguageJavaScript, true
	}
	return "", false
}

// Valid reports whether l is one of the canonical language names.
func (l Language) Valid() bool {
	switch l {
	case LanguagePython, LanguageCpp, LanguageJavaScript:
		return true
	}
	return false
}

// Cell is a single code cell. Stdout and Stderr hold the output of the last run
// as the client saw it at save time.
type Cell struct {
	ID       string   `json:"id"`
	Language Language `json:"language"`
	Code     string   `json:"code"`
	Stdout   string   `json:"stdout,omitempty"`
	Stderr   string   `json:"stderr,omitempty"`
}

// Notebook is an ordered list of cells owned by exactly one profile.
type Notebook struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
	Cells     []Cell    `json:"cells"`
}

// Profile holds the notebooks of a user, newest first.
type Profile struct {
	Notebooks []Notebook `json:"notebooks"`
}

// UnmarshalJSON decodes a stored notebook field by field. A field holding the
// wrong type is left at its zero value so that the rest of the notebook survives.
func (n *Notebook) UnmarshalJSON(data []byte) error {
	var cells json.RawMessage
	*n = Notebook{}
	ok := decodeFields(data, map[string]any{
		"id":        &n.ID,
		"title":     &n.Title,
		"createdAt": &n.CreatedAt,
		"updatedAt": &n.UpdatedAt,
		"cells":     &cells,
	})
	if !ok {
		return fmt.Errorf("notebook is not an object: %.32s", data)
	}
	n.Cells = decodeCells(cells)
	return nil
}

// UnmarshalJSON treats a malformed notebooks field as missing and skips
// list elements that are not objects.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var aux struct {
		Notebooks json.RawMessage `json:"notebooks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.Notebooks = nil
	elems, ok := decodeList(aux.Notebooks)
	if !ok {
		return nil
	}
	p.Notebooks = make([]Notebook, 0, len(elems))
	for _, raw := range elems {
		var nb Notebook
		if err := json.Unmarshal(raw, &nb); err != nil {
			continue
		}
		p.Notebooks = append(p.Notebooks, nb)
	}
	return nil
}

// decodeCells returns nil when raw is not a list, and otherwise keeps every
// element that is an object, decoding it field by field.
func decodeCells(raw json.RawMessage) []Cell {
	elems, ok := decodeList(raw)
	if !ok {
		return nil
	}
	cells := make([]Cell, 0, len(elems))
	for _, e := range elems {
		var c Cell
		if err := json.Unmarshal(e, &c); err == nil {
			cells = append(cells, c)
			continue
		}
		c = Cell{}
		if decodeFields(e, map[string]any{
			"id":       &c.ID,
			"language": &c.Language,
			"code":     &c.Code,
			"stdout":   &c.Stdout,
			"stderr":   &c.Stderr,
		}) {
			cells = append(cells, c)
		}
	}
	return cells
}

func decodeList(raw json.RawMessage) ([]json.RawMessage, bool) {
	if !isPresent(raw) {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

// decodeFields decodes each named member of a JSON object into its target,
// ignoring members that fail to decode. It reports whether data was an object.
func decodeFields(data []byte, fields map[string]any) bool {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil || members == nil {
		return false
	}
	for name, dst := range fields {
		if raw, ok := members[name]; ok {
			_ = json.Unmarshal(raw, dst)
		}
	}
	return true
}

// DefaultCell returns the starter cell placed in new notebooks.
func DefaultCell() Cell {
	return Cell{
		ID:       NewID(CellIDPrefix),
		Language: LanguagePython,
		Code:     defaultCellCode,
	}
}

// DefaultNotebook returns an untitled notebook with a single starter cell.
func DefaultNotebook(now time.Time) Notebook {
	ts := NewTimestamp(now)
	return Notebook{
		ID:        NewID(NotebookIDPrefix),
		Title:     DefaultNotebookTitle,
		CreatedAt: ts,
		UpdatedAt: ts,
		Cells:     []Cell{DefaultCell()},
	}
}

// DefaultProfile returns a profile holding one default notebook.
func DefaultProfile(now time.Time) *Profile {
	return &Profile{Notebooks: []Notebook{DefaultNotebook(now)}}
}

// NormalizeUser repairs a structurally incomplete profile in place.
// It returns true when anything was changed and the record needs persisting.
func NormalizeUser(u *User, now time.Time) bool {
	if u.Profile == nil {
		u.Profile = DefaultProfile(now)
		return true
	}
	if len(u.Profile.Notebooks) == 0 {
		u.Profile.Notebooks = []Notebook{DefaultNotebook(now)}
		return true
	}

	changed := false
	for i := range u.Profile.Notebooks {
		if NormalizeNotebook(&u.Profile.Notebooks[i], now) {
			changed = true
		}
	}
	return changed
}

// NormalizeNotebook fills in a missing id, timestamps and cell list, and gives
// every cell an id.
func NormalizeNotebook(n *Notebook, now time.Time) bool {
	changed := false
	if n.ID == "" {
		n.ID = NewID(NotebookIDPrefix)
		changed = true
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = NewTimestamp(now)
		changed = true
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
		changed = true
	}
	if n.Cells == nil {
		n.Cells = []Cell{DefaultCell()}
		changed = true
	}
	if AssignCellIDs(n.Cells) {
		changed = true
	}
	return changed
}

// AssignCellIDs gives a fresh id to every cell lacking one or repeating the id
// of an earlier cell, so ids are unique within the list.
func AssignCellIDs(cells []Cell) bool {
	changed := false
	seen := make(map[string]struct{}, len(cells))
	for i := range cells {
		if _, dup := seen[cells[i].ID]; cells[i].ID == "" || dup {
			cells[i].ID = NewID(CellIDPrefix)
			changed = true
		}
		seen[cells[i].ID] = struct{}{}
	}
	return changed
}
