package dialect

import (
	"fmt"
	"slices"
)

// ConflictPolicy decides what an insert does when a row's unique key already
// exists in the target.
type ConflictPolicy int

const (
	// OnConflictIgnore keeps the existing row.
	OnConflictIgnore ConflictPolicy = iota
	// OnConflictUpdatePrimaryKey overwrites the non-key columns of the row
	// with the same primary key.
	OnConflictUpdatePrimaryKey
	// OnConflictUpdateKeys overwrites the non-key columns of the row matching
	// the named key set.
	OnConflictUpdateKeys
)

func (p ConflictPolicy) String() string {
	switch p {
	case OnConflictIgnore:
		return "ignore"
	case OnConflictUpdatePrimaryKey:
		return "update-pk"
	case OnConflictUpdateKeys:
		return "update-keys"
	}
	return fmt.Sprintf("ConflictPolicy(%d)", int(p))
}

// Conflict pairs a policy with its key columns. ON CONFLICT and INSERT IGNORE
// dialects ignore a clash on any unique constraint and disregard the keys of
// an ignore; MERGE based dialects can only match on the keys, so they need them.
type Conflict struct {
	Policy ConflictPolicy
	Keys   []string
}

// Ignore returns an ignore-on-conflict policy. keys are the MERGE match columns.
func Ignore(keys ...string) Conflict {
	return Conflict{Policy: OnConflictIgnore, Keys: keys}
}

// UpdatePrimaryKey returns an update-on-conflict policy keyed on pk.
func UpdatePrimaryKey(pk ...string) Conflict {
	if len(pk) == 0 {
		pk = []string{"id"}
	}
	return Conflict{Policy: OnConflictUpdatePrimaryKey, Keys: pk}
}

// UpdateKeys returns an update-on-conflict policy keyed on keys.
func UpdateKeys(keys ...string) Conflict {
	return Conflict{Policy: OnConflictUpdateKeys, Keys: keys}
}

func (c Conflict) String() string {
	if len(c.Keys) == 0 {
		return c.Policy.String()
	}
	return fmt.Sprintf("%s%v", c.Policy, c.Keys)
}

// Validate checks the policy against the insert column list.
func (c Conflict) Validate(cols []string) error {
	if len(cols) == 0 {
		return fmt.Errorf("insert needs at least one column")
	}
	if c.Policy != OnConflictIgnore && len(c.Keys) == 0 {
		return fmt.Errorf("%s policy needs key columns", c.Policy)
	}
	for _, k := range c.Keys {
		if !slices.Contains(cols, k) {
			return fmt.Errorf("conflict key %q is not an inserted column", k)
		}
	}
	return nil
}

// Updates reports whether the policy rewrites existing rows.
func (c Conflict) Updates() bool {
	return c.Policy != OnConflictIgnore
}
