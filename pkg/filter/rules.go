package filter

// Rule declares a regex detection rule evaluated against free-text input.
type Rule struct {
	Name    string
	Pattern string
}

// DefaultKeywords returns the builtin case-insensitive substring denylist for
// explicit content. The list is deliberately small and auditable; it is a
// policy gate, not a security boundary against a determined adversary.
func DefaultKeywords() []string {
	return []string{
		"child porn",
		"child sexual",
		"bestiality",
		"necrophilia",
		"rape fantasy",
		"snuff film",
		"how to make a bomb",
		"school shooting",
	}
}

// DefaultInjectionRules returns the builtin prompt-injection rule set:
// instruction-override phrases, jailbreak markers, and role-escalation
// attempts. Patterns are data, not logic, so deployments can extend them
// through configuration.
func DefaultInjectionRules() []Rule {
	return []Rule{
		{
			Name:    "instruction-override",
			Pattern: `(?i)ignore\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|directives?)`,
		},
		{
			Name:    "instruction-disregard",
			Pattern: `(?i)(disregard|forget|discard|override)\s+(all\s+|any\s+)?(previous|prior|above|earlier|your)\s+(instructions?|prompts?|rules?|training|guidelines?)`,
		},
		{
			Name:    "system-prompt-probe",
			Pattern: `(?i)(reveal|show|print|repeat|output|display)\s+(me\s+)?(your|the)\s+(system\s+prompt|initial\s+prompt|instructions?|hidden\s+rules?)`,
		},
		{
			Name:    "jailbreak-marker",
			Pattern: `(?i)\b(jailbreak|jail\s*break|dan\s+mode|developer\s+mode\s+enabled|do\s+anything\s+now)\b`,
		},
		{
			Name:    "role-escalation",
			Pattern: `(?i)(you\s+are\s+now|act\s+as|pretend\s+(to\s+be|you\s+are))\s+(an?\s+)?(admin(istrator)?|root|system|unrestricted|uncensored)`,
		},
		{
			Name:    "persona-reset",
			Pattern: `(?i)(new\s+persona|without\s+(any\s+)?(restrictions?|filters?|limitations?)|no\s+longer\s+bound\s+by)`,
		},
		{
			Name:    "delimiter-injection",
			Pattern: `(?i)(\[/?(system|inst)\]|<\|?(system|im_start|im_end)\|?>)`,
		},
	}
}
