package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound commands
const (
	CommandLoadStarted  = "loadStarted"
	CommandLoadFinished = "loadFinished"
	CommandMetadata     = "metadata"
	CommandLoad         = "load"
	CommandCookies      = "cookies"
	CommandMutation     = "mutation"
	CommandSaveHTML     = "save_html"
)

// Outbound commands. "load" is shared with the inbound alias.
const (
	CommandInteract = "interact"
)

// Cookie is one browser cookie as reported by the remote session. Entries
// are kept as raw JSON so the jar is stored and resent unchanged.
type Cookie = json.RawMessage

// LoadMeta travels with every outbound load command.
type LoadMeta struct {
	Viewport  string   `json:"viewport"`
	UserAgent string   `json:"user_agent"`
	Cookies   []Cookie `json:"cookies"`
	Project   string   `json:"project"`
	Spider    string   `json:"spider"`
}

// LoadCommand asks the remote session to navigate.
type LoadCommand struct {
	Meta    LoadMeta `json:"_meta"`
	URL     string   `json:"url"`
	BaseURL string   `json:"baseurl"`
}

// InteractMeta identifies the sender of an interaction.
type InteractMeta struct {
	Spider  string `json:"spider"`
	Project string `json:"project"`
}

// InteractCommand forwards a captured local input event. A nil Interaction
// is a resynchronization ping.
type InteractCommand struct {
	Meta        InteractMeta `json:"_meta"`
	Interaction *Interaction `json:"interaction,omitempty"`
}

// Interaction is the serialized form of a local input event.
type Interaction struct {
	Type     string  `json:"type"`
	Target   string  `json:"target,omitempty"`
	Key      string  `json:"key,omitempty"`
	KeyCode  int     `json:"keyCode,omitempty"`
	Which    int     `json:"which,omitempty"`
	Value    string  `json:"value,omitempty"`
	ClientX  float64 `json:"clientX,omitempty"`
	ClientY  float64 `json:"clientY,omitempty"`
	ScrollX  float64 `json:"scrollX,omitempty"`
	ScrollY  float64 `json:"scrollY,omitempty"`
	CtrlKey  bool    `json:"ctrlKey,omitempty"`
	ShiftKey bool    `json:"shiftKey,omitempty"`
	AltKey   bool    `json:"altKey,omitempty"`
	MetaKey  bool    `json:"metaKey,omitempty"`
}

// LoadStarted reports that the remote session began a navigation. The id
// may be sent as a string or a number.
type LoadStarted struct {
	ID  json.RawMessage `json:"id,omitempty"`
	URL string          `json:"url"`
}

// AttemptID returns the remote attempt id, or "" when none was sent.
func (m LoadStarted) AttemptID() string {
	return scalarString(m.ID)
}

// Metadata is shared by loadFinished, metadata and load. Error is kept raw
// because the remote side sends booleans, strings or objects.
type Metadata struct {
	URL    string          `json:"url,omitempty"`
	Loaded bool            `json:"loaded,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// HasError reports whether the payload carries a truthy error value.
func (m Metadata) HasError() bool {
	v := bytes.TrimSpace(m.Error)
	switch string(v) {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

// ErrorText returns the error payload as text for logging.
func (m Metadata) ErrorText() string {
	if !m.HasError() {
		return ""
	}
	return scalarString(m.Error)
}

// CookiesMessage carries the remote session's full cookie jar.
type CookiesMessage struct {
	Cookies []Cookie `json:"cookies"`
}

// Mutation carries one mirror operation: the first element of Data is the
// operation name, the rest are its arguments.
type Mutation struct {
	Data []json.RawMessage `json:"_data"`
}

// Op splits the mutation into its operation name and arguments.
func (m Mutation) Op() (string, []json.RawMessage, error) {
	if len(m.Data) == 0 {
		return "", nil, fmt.Errorf("mutation without operation")
	}
	var name string
	if err := Unmarshal(m.Data[0], &name); err != nil {
		return "", nil, fmt.Errorf("mutation operation name: %w", err)
	}
	return name, m.Data[1:], nil
}

func scalarString(raw json.RawMessage) string {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return strings.Trim(string(v), `"`)
}
