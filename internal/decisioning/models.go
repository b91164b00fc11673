package decisioning

import (
	"strconv"
	"strings"

	"decisioning-engine/internal/request"
)

// Campaign types.
const (
	CampaignTypeAB = "ab"
	CampaignTypeXT = "xt"
)

// Artifact is an immutable snapshot of campaigns and audiences. It is
// replaced wholesale on refresh, never mutated in place.
type Artifact struct {
	Version      string                `json:"version"` // "major.minor"
	GlobalMbox   string                `json:"globalMbox,omitempty"`
	RemoteMboxes []string              `json:"remoteMboxes,omitempty"`
	RemoteViews  []string              `json:"remoteViews,omitempty"`
	Campaigns    []Campaign            `json:"campaigns"`
	Audiences    map[string]*Condition `json:"audiences,omitempty"` // keyed by segment id
	Meta         map[string]any        `json:"meta,omitempty"`
}

// MajorVersion parses the major component of the artifact version.
func (a *Artifact) MajorVersion() int {
	major, _, _ := strings.Cut(a.Version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return -1
	}
	return n
}

type Campaign struct {
	ID                   int64                 `json:"id"`
	Type                 string                `json:"campaignType"` // "ab" | "xt"
	Environment          string                `json:"environment,omitempty"`
	Branches             []Branch              `json:"branches"`
	NotificationTemplate *NotificationTemplate `json:"notificationTemplate,omitempty"`
}

// Branch is one traffic-allocation slice of a campaign. Allocation is its
// declared percentage share of eligible traffic.
type Branch struct {
	BranchID     int        `json:"branchId"`
	Allocation   float64    `json:"allocation"`
	Offers       []Offer    `json:"offers"`
	AudienceRule *Condition `json:"audienceRule,omitempty"`
}

type Offer struct {
	ID      int64  `json:"id"`
	Type    string `json:"type,omitempty"`
	Content any    `json:"content,omitempty"`
}

type NotificationTemplate struct {
	EventTokens []string `json:"eventTokens,omitempty"`
}

// Condition is one node of a pre-parsed audience rule tree. Exactly one of
// the composite fields (And/Or/Not), AudienceID, or the leaf triple
// (Key/Op/Value) is populated.
type Condition struct {
	And []*Condition `json:"and,omitempty"`
	Or  []*Condition `json:"or,omitempty"`
	Not *Condition   `json:"not,omitempty"`

	// AudienceID references a shared segment tree in Artifact.Audiences.
	AudienceID int64 `json:"audienceId,omitempty"`

	// Leaf: compare the context attribute at Key against Value.
	Key   string `json:"key,omitempty"`
	Op    string `json:"op,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Option is one delivered offer on an ask's result.
type Option struct {
	Type       string `json:"type,omitempty"`
	Content    any    `json:"content,omitempty"`
	EventToken string `json:"eventToken,omitempty"`
}

type NotificationMbox struct {
	Name string `json:"name"`
}

type NotificationView struct {
	Name string `json:"name"`
}

// Notification is a display notification produced for a matched campaign in
// execute mode.
type Notification struct {
	ID           string            `json:"id"`
	ImpressionID string            `json:"impressionId"`
	Timestamp    int64             `json:"timestamp"` // epoch millis
	Type         string            `json:"type"`
	Mbox         *NotificationMbox `json:"mbox,omitempty"`
	View         *NotificationView `json:"view,omitempty"`
	Tokens       []string          `json:"tokens,omitempty"`
}

type MboxResponse struct {
	Index   int      `json:"index,omitempty"`
	Name    string   `json:"name"`
	Options []Option `json:"options,omitempty"`
	Trace   *Trace   `json:"trace,omitempty"`
}

type ViewResponse struct {
	Name    string   `json:"name"`
	Options []Option `json:"options,omitempty"`
	Trace   *Trace   `json:"trace,omitempty"`
}

type PageLoadResponse struct {
	Options []Option `json:"options,omitempty"`
	Trace   *Trace   `json:"trace,omitempty"`
}

type ExecuteResponse struct {
	PageLoad *PageLoadResponse `json:"pageLoad,omitempty"`
	Mboxes   []MboxResponse    `json:"mboxes,omitempty"`
}

type PrefetchResponse struct {
	PageLoad *PageLoadResponse `json:"pageLoad,omitempty"`
	Mboxes   []MboxResponse    `json:"mboxes,omitempty"`
	Views    []ViewResponse    `json:"views,omitempty"`
}

// Response is the engine's answer to one delivery request.
type Response struct {
	Status        int                `json:"status"`
	RequestID     string             `json:"requestId,omitempty"`
	ID            *request.VisitorID `json:"id,omitempty"`
	Client        string             `json:"client,omitempty"`
	Execute       *ExecuteResponse   `json:"execute,omitempty"`
	Prefetch      *PrefetchResponse  `json:"prefetch,omitempty"`
	Notifications []Notification     `json:"notifications,omitempty"`
}

// RemoteDependency reports which of a request's asks cannot be decided
// on-device.
type RemoteDependency struct {
	Remote       bool     `json:"remoteNeeded"`
	RemoteMboxes []string `json:"remoteMboxes,omitempty"`
	RemoteViews  []string `json:"remoteViews,omitempty"`
}
