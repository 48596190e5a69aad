package sanitize

// DefaultRules is the rule list used for every migrated table:
//
//   - audit actor references point at users of the source system and are dropped;
//   - a missing or zero owning company becomes defaultCompanyID;
//   - translatable label fields holding a decoded JSON object are stored as JSON text.
func DefaultRules(defaultCompanyID int64) []Rule {
	return []Rule{
		{
			Name:    "drop-audit-actor",
			Columns: []string{"create_uid", "write_uid"},
			When:    Always,
			Apply:   Null,
		},
		{
			Name:    "default-company",
			Columns: []string{"company_id"},
			When:    NullOrZero,
			Apply:   Set(defaultCompanyID),
		},
		{
			Name:    "structured-label",
			Tables:  []string{"res_groups", "res_partner"},
			Columns: []string{"name", "comment"},
			When:    Structured,
			Apply:   JSONText,
		},
	}
}

// Default returns a sanitizer over DefaultRules.
func Default(defaultCompanyID int64) *Sanitizer {
	return New(DefaultRules(defaultCompanyID)...)
}
