// Package permission implements the rule-based allow/ask/deny gate and the
// per-session override state that the loop node consults before executing a
// tool call.
package permission

import (
	"fmt"
	"strings"
)

type (
	// Decision is the outcome of evaluating a permission string against a
	// policy or session overrides.
	Decision string

	// Rule is a single entry in a Policy: Pattern matches either exactly or,
	// when it ends with "*", as a prefix.
	Rule struct {
		Pattern  string
		Decision Decision
	}

	// Policy is an ordered sequence of Rules. The first matching rule wins;
	// if no rule matches, the policy allows.
	Policy struct {
		rules []Rule
	}

	// Reply is a human response to a PermissionAsked interrupt.
	Reply string

	// Session holds per-run override state layered on top of a base Policy.
	// Overrides take precedence in the order reject > always > once.
	Session struct {
		policy *Policy
		once   map[string]struct{}
		always map[string]struct{}
		reject map[string]struct{}
	}

	// Snapshot is the serializable form of a Session's override sets.
	Snapshot struct {
		Once   []string `json:"once,omitempty"`
		Always []string `json:"always,omitempty"`
		Reject []string `json:"reject,omitempty"`
	}
)

const (
	// Allow permits tool execution without asking.
	Allow Decision = "allow"
	// Ask requires a human decision before execution proceeds.
	Ask Decision = "ask"
	// Deny blocks execution outright.
	Deny Decision = "deny"
)

const (
	// ReplyOnce allows the single pending call and nothing further.
	ReplyOnce Reply = "once"
	// ReplyAlways allows this and all future calls matching the permission.
	ReplyAlways Reply = "always"
	// ReplyReject denies this and all future calls matching the permission.
	ReplyReject Reply = "reject"
)

// NewPolicy constructs a Policy from an ordered rule list.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// Decide evaluates permission against the policy's rules in order. The first
// matching rule wins; no match yields Allow.
func (p *Policy) Decide(permission string) Decision {
	if p == nil {
		return Allow
	}
	for _, r := range p.rules {
		if match(r.Pattern, permission) {
			return r.Decision
		}
	}
	return Allow
}

// match reports whether pattern matches permission: exact match, or a
// "*"-suffixed prefix match. No regex support.
func match(pattern, permission string) bool {
	if pattern == permission {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(permission, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// NewSession constructs a Session layered over the given base policy.
func NewSession(policy *Policy) *Session {
	return &Session{
		policy: policy,
		once:   make(map[string]struct{}),
		always: make(map[string]struct{}),
		reject: make(map[string]struct{}),
	}
}

// Decide evaluates permission, consulting overrides before the base policy
// in precedence order reject > always > once > policy. A matching "once"
// entry is consumed (removed) on this call.
func (s *Session) Decide(permission string) Decision {
	if _, ok := s.reject[permission]; ok {
		return Deny
	}
	if _, ok := s.always[permission]; ok {
		return Allow
	}
	if _, ok := s.once[permission]; ok {
		delete(s.once, permission)
		return Allow
	}
	return s.policy.Decide(permission)
}

// ApplyReply records a human's reply for permission into the appropriate
// override set.
func (s *Session) ApplyReply(permission string, reply Reply) {
	switch reply {
	case ReplyOnce:
		s.once[permission] = struct{}{}
	case ReplyAlways:
		s.always[permission] = struct{}{}
	case ReplyReject:
		s.reject[permission] = struct{}{}
	}
}

// ResumeValue is the structured shape a resume command carries when
// answering a PermissionAsked interrupt.
type ResumeValue struct {
	Permission string
	Reply      Reply
}

// Request is the interrupt payload the loop node raises when a tool call
// needs a human decision: enough context for the resuming caller to render
// a prompt and reply with a ResumeValue.
type Request struct {
	Permission string
	Tool       string
	CallID     string
	Input      []byte
}

// ApplyResume parses and applies a resume value answering a pending
// permission interrupt. It fails with a malformed-value error rather than
// guessing the intended reply.
func (s *Session) ApplyResume(value ResumeValue) error {
	switch value.Reply {
	case ReplyOnce, ReplyAlways, ReplyReject:
	default:
		return fmt.Errorf("permission: malformed resume value: unknown reply %q", value.Reply)
	}
	if value.Permission == "" {
		return fmt.Errorf("permission: malformed resume value: empty permission")
	}
	s.ApplyReply(value.Permission, value.Reply)
	return nil
}

// Snapshot captures the current override sets for persistence.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Once:   keys(s.once),
		Always: keys(s.always),
		Reject: keys(s.reject),
	}
}

// Restore builds a new Session from a Snapshot and a base policy. Restoring
// to a fresh session with the same base policy yields identical decisions to
// the session the snapshot was taken from (P4).
func Restore(snap Snapshot, basePolicy *Policy) *Session {
	s := NewSession(basePolicy)
	for _, p := range snap.Once {
		s.once[p] = struct{}{}
	}
	for _, p := range snap.Always {
		s.always[p] = struct{}{}
	}
	for _, p := range snap.Reject {
		s.reject[p] = struct{}{}
	}
	return s
}

func keys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
