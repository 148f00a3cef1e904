package webhook

import (
	"fmt"

	"github.com/google/go-github/v57/github"
)

// Kind is one of the GitHub event types the dispatcher handles
type Kind int

const (
	KindUnrecognized Kind = iota
	KindPush
	KindPullRequest
	KindPullRequestReview
	KindPullRequestReviewComment
	KindIssueComment
	KindIssues
	KindCreate
	KindDelete
	KindLabel
	KindMilestone
)

var kindNames = map[Kind]string{
	KindPush:                     "push",
	KindPullRequest:              "pull_request",
	KindPullRequestReview:        "pull_request_review",
	KindPullRequestReviewComment: "pull_request_review_comment",
	KindIssueComment:             "issue_comment",
	KindIssues:                   "issues",
	KindCreate:                   "create",
	KindDelete:                   "delete",
	KindLabel:                    "label",
	KindMilestone:                "milestone",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ParseKind maps an X-GitHub-Event header value to a Kind
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnrecognized
}

// String returns the GitHub event name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unrecognized"
}

// Event is a decoded delivery. Payload is the go-github event type for Kind,
// for example *github.PushEvent for KindPush.
type Event struct {
	Kind    Kind
	Payload any
}

// Decode parses body into the typed payload for kind
func Decode(kind Kind, body []byte) (Event, error) {
	if kind == KindUnrecognized {
		return Event{Kind: kind}, nil
	}

	payload, err := github.ParseWebHook(kind.String(), body)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %s payload: %v", ErrMalformedPayload, kind, err)
	}
	return Event{Kind: kind, Payload: payload}, nil
}
