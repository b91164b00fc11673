package decisioning

import (
	"net/url"
	"strings"

	"decisioning-engine/internal/request"
)

// Trace is the audit of how one ask's decision was reached. Attached only
// when the inbound request asked for it.
type Trace struct {
	ClientCode               string                    `json:"clientCode"`
	Request                  TraceRequest              `json:"request"`
	Campaigns                []TraceCampaign           `json:"campaigns"`
	Profile                  TraceProfile              `json:"profile"`
	EvaluatedCampaignTargets []EvaluatedCampaignTarget `json:"evaluatedCampaignTargets"`
}

// TraceAskDescriptor echoes the mbox/view descriptor that was evaluated.
type TraceAskDescriptor struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"` // "execute" | "prefetch"
	Parameters map[string]string `json:"parameters,omitempty"`
}

type TraceRequest struct {
	Mbox      *TraceAskDescriptor `json:"mbox,omitempty"`
	View      *TraceAskDescriptor `json:"view,omitempty"`
	SessionID string              `json:"sessionId,omitempty"`
	PageURL   string              `json:"pageURL,omitempty"`
	Host      string              `json:"host,omitempty"`
}

type TraceCampaign struct {
	ID            int64          `json:"id"`
	CampaignType  string         `json:"campaignType"`
	BranchID      int            `json:"branchId"`
	Offers        []int64        `json:"offers"`
	Environment   string         `json:"environment,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
}

type TraceProfile struct {
	VisitorID TraceVisitorID `json:"visitorId"`
}

// TraceVisitorID splits the tntId on its first dot into the identifier and
// the profile-location suffix.
type TraceVisitorID struct {
	TntID                   string `json:"tntId,omitempty"`
	ProfileLocation         string `json:"profileLocation,omitempty"`
	MarketingCloudVisitorID string `json:"marketingCloudVisitorId,omitempty"`
	ThirdPartyID            string `json:"thirdPartyId,omitempty"`
}

// EvaluatedCampaignTarget is the audit record for one considered campaign,
// matched or not.
type EvaluatedCampaignTarget struct {
	Context                 request.Context `json:"context,omitempty"`
	CampaignID              int64           `json:"campaignId"`
	CampaignType            string          `json:"campaignType"`
	MatchedSegmentIDs       []int64         `json:"matchedSegmentIds"`
	UnmatchedSegmentIDs     []int64         `json:"unmatchedSegmentIds"`
	MatchedRuleConditions   []string        `json:"matchedRuleConditions,omitempty"`
	UnmatchedRuleConditions []string        `json:"unmatchedRuleConditions,omitempty"`
}

func traceVisitorID(id *request.VisitorID) TraceVisitorID {
	out := TraceVisitorID{}
	if id == nil {
		return out
	}
	out.MarketingCloudVisitorID = id.MarketingCloudVisitorID
	out.ThirdPartyID = id.ThirdPartyID
	out.TntID = id.TntID
	if ident, location, found := strings.Cut(id.TntID, "."); found {
		out.TntID = ident
		out.ProfileLocation = location
	}
	return out
}

func traceRequestBlock(a ask, req *request.DeliveryRequest, sessionID string) TraceRequest {
	descriptor := &TraceAskDescriptor{Name: a.name, Type: a.mode, Parameters: a.parameters}

	tr := TraceRequest{SessionID: sessionID}
	if a.kind == askView {
		tr.View = descriptor
	} else {
		tr.Mbox = descriptor
	}

	if req.Context != nil {
		if req.Context.Address != nil {
			tr.PageURL = req.Context.Address.URL
		}
		if req.Context.Browser != nil && req.Context.Browser.Host != "" {
			tr.Host = req.Context.Browser.Host
		} else if u, err := url.Parse(tr.PageURL); err == nil {
			tr.Host = u.Hostname()
		}
	}
	return tr
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
