package decisioning

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"decisioning-engine/internal/request"
)

const (
	modeExecute  = "execute"
	modePrefetch = "prefetch"

	askMbox     = "mbox"
	askView     = "view"
	askPageLoad = "pageLoad"
)

// ask is one mbox/view/pageLoad unit to decide.
type ask struct {
	kind       string
	mode       string
	name       string
	index      int
	parameters map[string]string
}

type askResult struct {
	options       []Option
	notifications []Notification
	trace         *Trace
}

// evaluator runs campaign evaluation for one request against one captured
// artifact reference. The artifact is immutable, so evaluation reads no
// shared mutable state.
type evaluator struct {
	client      string
	environment string
	artifact    *Artifact
	log         zerolog.Logger
}

func (e *evaluator) evaluateAsk(a ask, req *request.DeliveryRequest, base request.Context, sessionID string) askResult {
	visitorSeed := request.PrimaryID(req.ID)
	withTrace := req.TraceRequested()

	var result askResult
	var traceCampaigns []TraceCampaign
	var targets []EvaluatedCampaignTarget

	for i := range e.artifact.Campaigns {
		campaign := &e.artifact.Campaigns[i]
		if campaign.Environment != "" && campaign.Environment != e.environment {
			continue
		}

		allocation := Allocation(e.client, campaign.ID, visitorSeed)
		askCtx := base.WithAsk(request.MboxParameters(a.parameters), allocation)

		aud := &audit{}
		branch, matched := e.selectBranch(campaign, askCtx, allocation, aud)

		var notifications []Notification
		if matched {
			result.options = append(result.options, branchOptions(campaign, branch)...)
			if a.mode == modeExecute {
				notifications = []Notification{displayNotification(a, campaign)}
				result.notifications = append(result.notifications, notifications...)
			}
		}

		if !withTrace {
			continue
		}
		if matched {
			traceCampaigns = append(traceCampaigns, TraceCampaign{
				ID:            campaign.ID,
				CampaignType:  campaign.Type,
				BranchID:      branch.BranchID,
				Offers:        offerIDs(branch),
				Environment:   campaign.Environment,
				Notifications: notifications,
			})
		}
		target := EvaluatedCampaignTarget{
			CampaignID:              campaign.ID,
			CampaignType:            campaign.Type,
			MatchedSegmentIDs:       emptyIfNil(aud.matchedSegments),
			UnmatchedSegmentIDs:     emptyIfNil(aud.unmatchedSegments),
			MatchedRuleConditions:   aud.matchedConditions,
			UnmatchedRuleConditions: aud.unmatchedConditions,
		}
		// The context snapshot is only interesting when rule-based, not
		// purely segment-based, targeting was involved.
		if len(aud.matchedConditions)+len(aud.unmatchedConditions) > 0 {
			target.Context = askCtx
		}
		targets = append(targets, target)
	}

	if withTrace {
		result.trace = &Trace{
			ClientCode:               e.client,
			Request:                  traceRequestBlock(a, req, sessionID),
			Campaigns:                emptyIfNil(traceCampaigns),
			Profile:                  TraceProfile{VisitorID: traceVisitorID(req.ID)},
			EvaluatedCampaignTargets: emptyIfNil(targets),
		}
	}
	return result
}

// selectBranch evaluates every branch's audience rule (keeping the audit
// complete) and picks among the eligible branches deterministically: the
// visitor's allocation maps into the eligible branches' declared splits.
func (e *evaluator) selectBranch(campaign *Campaign, ctx request.Context, allocation float64, aud *audit) (*Branch, bool) {
	var eligible []*Branch
	for i := range campaign.Branches {
		branch := &campaign.Branches[i]
		if evaluateCondition(branch.AudienceRule, e.artifact.Audiences, ctx, aud, false) {
			eligible = append(eligible, branch)
		}
	}
	if len(eligible) == 0 {
		return nil, false
	}

	total := 0.0
	for _, b := range eligible {
		total += b.Allocation
	}
	if total <= 0 {
		// no declared split among eligible branches: equal weights
		idx := int(allocation / 100 * float64(len(eligible)))
		if idx >= len(eligible) {
			idx = len(eligible) - 1
		}
		return eligible[idx], true
	}

	point := allocation / 100 * total
	cum := 0.0
	for _, b := range eligible {
		cum += b.Allocation
		if point < cum {
			return b, true
		}
	}
	return eligible[len(eligible)-1], true
}

func branchOptions(campaign *Campaign, branch *Branch) []Option {
	token := ""
	if campaign.NotificationTemplate != nil && len(campaign.NotificationTemplate.EventTokens) > 0 {
		token = campaign.NotificationTemplate.EventTokens[0]
	}
	options := make([]Option, 0, len(branch.Offers))
	for _, offer := range branch.Offers {
		options = append(options, Option{Type: offer.Type, Content: offer.Content, EventToken: token})
	}
	return options
}

func offerIDs(branch *Branch) []int64 {
	ids := make([]int64, 0, len(branch.Offers))
	for _, offer := range branch.Offers {
		ids = append(ids, offer.ID)
	}
	return ids
}

func displayNotification(a ask, campaign *Campaign) Notification {
	n := Notification{
		ID:           uuid.NewString(),
		ImpressionID: uuid.NewString(),
		Timestamp:    time.Now().UnixMilli(),
		Type:         "display",
	}
	if campaign.NotificationTemplate != nil {
		n.Tokens = campaign.NotificationTemplate.EventTokens
	}
	if a.kind == askView {
		n.View = &NotificationView{Name: a.name}
	} else {
		n.Mbox = &NotificationMbox{Name: a.name}
	}
	return n
}
