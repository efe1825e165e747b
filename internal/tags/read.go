package tags

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// StatusActive marks a relation that takes effect.
const StatusActive = "active"

const maxLineSize = 1 << 20

// Relation is one alias or implication record.
type Relation struct {
	Antecedent string `json:"antecedent_name" yaml:"antecedent_name"`
	Consequent string `json:"consequent_name" yaml:"consequent_name"`
	Status     string `json:"status" yaml:"status"`
}

// Active reports whether the relation takes effect.
func (r Relation) Active() bool {
	return r.Status == StatusActive
}

// ReadRelations decodes newline-delimited relation records. Blank lines are
// skipped. Tag names are NFC-normalized so that equal names compare equal.
func ReadRelations(r io.Reader) ([]Relation, error) {
	var out []Relation

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		// Exports carry extra fields (ids, timestamps); they are ignored.
		var rel Relation
		if err := json.Unmarshal(raw, &rel); err != nil {
			return nil, &LoadError{Code: ErrCodeMalformedRecord, Line: line, Message: err.Error()}
		}
		if rel.Antecedent == "" || rel.Consequent == "" {
			return nil, &LoadError{Code: ErrCodeMalformedRecord, Line: line, Message: "antecedent_name and consequent_name are required"}
		}

		rel.Antecedent = norm.NFC.String(rel.Antecedent)
		rel.Consequent = norm.NFC.String(rel.Consequent)
		out = append(out, rel)
	}
	if err := sc.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeMalformedRecord, Line: line + 1, Message: err.Error()}
	}
	return out, nil
}

// ReadList reads one tag name per line, trimming whitespace and skipping
// blank lines.
func ReadList(r io.Reader) ([]string, error) {
	var out []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" {
			continue
		}
		out = append(out, norm.NFC.String(name))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
