package schemas

// -- Recorded Action Schemas --

// PlaywrightCommand is the primitive replay command captured for one recorded
// step. Method names follow the Playwright page API (click, fill, press, type,
// scrollIntoView); Args are positional string arguments in the order the
// upstream engine supplied them.
type PlaywrightCommand struct {
	Method string   `json:"method"`
	Args   []string `json:"args"`
}

// ActionEntry is the persisted payload for one recorded step. It carries
// everything the code synthesis pipeline needs to replay the step: the page
// URL, the replay command, and the candidate locators (the first xpath is
// authoritative).
type ActionEntry struct {
	URL               string            `json:"url"`
	PlaywrightCommand PlaywrightCommand `json:"playwrightCommand"`
	ComponentString   string            `json:"componentString,omitempty"`
	NewStepString     string            `json:"newStepString,omitempty"`
	Action            string            `json:"action,omitempty"`
	Xpaths            []string          `json:"xpaths"`
	PreviousSelectors []string          `json:"previousSelectors"`
	Completed         bool              `json:"completed"`
}

// ActionRecord is the full input for recording one step: the payload plus the
// request id it belongs to. The identifying triple (URL, Action,
// PreviousSelectors) doubles as the cache lookup key.
type ActionRecord struct {
	ActionEntry
	RequestID string `json:"requestId"`
}

// CacheKey is the identifying triple for one recorded step. Two records with
// the same semantic triple address the same cache slot regardless of field
// ordering.
type CacheKey struct {
	URL               string   `json:"url"`
	Action            string   `json:"action"`
	PreviousSelectors []string `json:"previousSelectors"`
}

// Key extracts the cache key from a record.
func (r ActionRecord) Key() CacheKey {
	return CacheKey{
		URL:               r.URL,
		Action:            r.Action,
		PreviousSelectors: r.PreviousSelectors,
	}
}
