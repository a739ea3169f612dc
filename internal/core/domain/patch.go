package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	PathTopic        = "topic"
	PathRevealed     = "revealed"
	PathParticipants = "participants"

	FieldName    = "name"
	FieldVote    = "vote"
	FieldIsAdmin = "isAdmin"
)

// Patch is a set of field-level writes keyed by slash-separated document path,
// e.g. "participants/{id}/vote". A nil value removes the field.
// Stores apply a patch atomically; fields it does not name are never touched.
type Patch map[string]any

func ParticipantPath(id, field string) string {
	return PathParticipants + "/" + id + "/" + field
}

func VotePath(id string) string {
	return ParticipantPath(id, FieldVote)
}

// Paths returns the patch keys in lexical order.
func (p Patch) Paths() []string {
	paths := make([]string, 0, len(p))
	for path := range p {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Validate checks that every path addresses a known session field with a value of the right type.
func (p Patch) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty patch", ErrInvalidPatch)
	}
	for _, path := range p.Paths() {
		if err := validatePath(path, p[path]); err != nil {
			return err
		}
	}
	return nil
}

func validatePath(path string, value any) error {
	segs := strings.Split(path, "/")
	switch {
	case len(segs) == 1 && segs[0] == PathTopic:
		if _, ok := asString(value); ok {
			return nil
		}
	case len(segs) == 1 && segs[0] == PathRevealed:
		if _, ok := value.(bool); ok {
			return nil
		}
	case len(segs) == 3 && segs[0] == PathParticipants:
		if !ValidID(segs[1]) {
			return fmt.Errorf("%w: bad participant id in %q", ErrInvalidPatch, path)
		}
		switch segs[2] {
		case FieldName:
			if _, ok := asString(value); ok {
				return nil
			}
		case FieldIsAdmin:
			if _, ok := value.(bool); ok {
				return nil
			}
		case FieldVote:
			if value == nil {
				return nil
			}
			if s, ok := asString(value); ok && Card(s).Valid() {
				return nil
			}
		default:
			return fmt.Errorf("%w: unknown participant field in %q", ErrInvalidPatch, path)
		}
	default:
		return fmt.Errorf("%w: unknown path %q", ErrInvalidPatch, path)
	}
	return fmt.Errorf("%w: unexpected value %v for %q", ErrInvalidPatch, value, path)
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case Card:
		return string(s), true
	}
	return "", false
}

// ApplyPatch merges p into a decoded JSON document in place. Missing intermediate
// objects are created for writes; removals under a missing parent are no-ops so that
// clearing a field never materialises an empty entry.
func ApplyPatch(doc map[string]any, p Patch) error {
	for _, path := range p.Paths() {
		segs := strings.Split(path, "/")
		for _, seg := range segs {
			if seg == "" {
				return fmt.Errorf("%w: empty segment in %q", ErrInvalidPatch, path)
			}
		}
		value := p[path]

		node := doc
		for _, seg := range segs[:len(segs)-1] {
			child, ok := node[seg].(map[string]any)
			if !ok {
				if value == nil {
					node = nil
					break
				}
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
		if node == nil {
			continue
		}

		leaf := segs[len(segs)-1]
		if value == nil {
			delete(node, leaf)
		} else {
			node[leaf] = value
		}
	}
	return nil
}
