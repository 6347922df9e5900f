// Package reaction merges reaction state for the messages of one conversation.
//
// Each (message, user) pair has a confirmed state, the newest version the
// backend has reported, and a queue of local intents that have not been
// answered yet. The displayed reaction is the newest unanswered intent, or the
// confirmed state when nothing is in flight. Responses and push broadcasts
// both funnel into the confirmed state with last-writer-wins on version, so
// they converge in any arrival order and applying either twice is harmless.
package reaction

import (
	"cmp"
	"slices"
	"sync"

	"gosocialchat/internal/chatsync/model"
	"gosocialchat/internal/protocol"
)

// Intent is one local toggle, already resolved to the state the user wants.
// An empty Emoji means remove.
type Intent struct {
	MessageID string
	UserID    string
	UserName  string
	Emoji     string
	Seq       uint64
}

func (i Intent) Remove() bool {
	return i.Emoji == ""
}

// Request is the body to send for the intent.
func (i Intent) Request() protocol.ReactionRequest {
	if i.Remove() {
		return protocol.ReactionRequest{Remove: true}
	}
	return protocol.ReactionRequest{Emoji: i.Emoji}
}

type confirmed struct {
	userName string
	emoji    string
	version  int64
}

type key struct {
	messageID string
	userID    string
}

type Reconciler struct {
	mu        sync.Mutex
	seq       uint64
	confirmed map[key]confirmed
	pending   map[key][]Intent
}

func New() *Reconciler {
	return &Reconciler{
		confirmed: make(map[key]confirmed),
		pending:   make(map[key][]Intent),
	}
}

// Seed loads reactions that came with a fetched message.
func (r *Reconciler) Seed(messageID string, reactions []model.Reaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, re := range reactions {
		r.applyLocked(key{messageID, re.UserID}, confirmed{userName: re.UserName, emoji: re.Emoji, version: re.Version})
	}
}

// Toggle resolves a tap on emoji against what the user currently sees and
// records the result as a pending intent: no reaction adds it, the same emoji
// removes it, a different emoji replaces it.
func (r *Reconciler) Toggle(messageID, userID, userName, emoji string) Intent {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{messageID, userID}
	current, _ := r.displayLocked(k)
	resolved := emoji
	if current == emoji {
		resolved = ""
	}
	r.seq++
	intent := Intent{MessageID: messageID, UserID: userID, UserName: userName, Emoji: resolved, Seq: r.seq}
	r.pending[k] = append(r.pending[k], intent)
	return intent
}

// Confirm applies the backend's answer to intent. Intents issued up to and
// including it are settled; later ones stay pending.
func (r *Reconciler) Confirm(intent Intent, ev protocol.ReactionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{intent.MessageID, intent.UserID}
	r.settleLocked(k, intent.Seq)
	r.applyLocked(k, confirmed{userName: ev.UserName, emoji: ev.Emoji, version: ev.Version})
}

// Fail drops intent. The display falls back to the newest remaining intent or
// the confirmed state.
func (r *Reconciler) Fail(intent Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{intent.MessageID, intent.UserID}
	r.pending[k] = slices.DeleteFunc(r.pending[k], func(i Intent) bool { return i.Seq == intent.Seq })
	if len(r.pending[k]) == 0 {
		delete(r.pending, k)
	}
}

// Apply merges a pushed reaction_added or reaction_removed event and reports
// whether the confirmed state moved.
func (r *Reconciler) Apply(ev protocol.ReactionEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(key{ev.MessageID, ev.UserID}, confirmed{userName: ev.UserName, emoji: ev.Emoji, version: ev.Version})
}

func (r *Reconciler) settleLocked(k key, seq uint64) {
	r.pending[k] = slices.DeleteFunc(r.pending[k], func(i Intent) bool { return i.Seq <= seq })
	if len(r.pending[k]) == 0 {
		delete(r.pending, k)
	}
}

// applyLocked keeps the higher version. Removals are kept as empty entries so
// an older add arriving late cannot bring the reaction back.
func (r *Reconciler) applyLocked(k key, next confirmed) bool {
	cur, ok := r.confirmed[k]
	if ok && next.version <= cur.version {
		return false
	}
	if next.userName == "" {
		next.userName = cur.userName
	}
	r.confirmed[k] = next
	return true
}

func (r *Reconciler) displayLocked(k key) (string, string) {
	if p := r.pending[k]; len(p) > 0 {
		last := p[len(p)-1]
		return last.Emoji, last.UserName
	}
	c := r.confirmed[k]
	return c.emoji, c.userName
}

// Current returns what userID's reaction on messageID looks like right now.
func (r *Reconciler) Current(messageID, userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	emoji, _ := r.displayLocked(key{messageID, userID})
	return emoji
}

// Pending reports whether any intent for the pair is unanswered.
func (r *Reconciler) Pending(messageID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending[key{messageID, userID}]) > 0
}

// Reactions lists the displayed reactions on messageID, ordered by user id.
func (r *Reconciler) Reactions(messageID string) []model.Reaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make(map[string]struct{})
	for k := range r.confirmed {
		if k.messageID == messageID {
			users[k.userID] = struct{}{}
		}
	}
	for k := range r.pending {
		if k.messageID == messageID {
			users[k.userID] = struct{}{}
		}
	}

	var out []model.Reaction
	for userID := range users {
		k := key{messageID, userID}
		emoji, name := r.displayLocked(k)
		if emoji == "" {
			continue
		}
		out = append(out, model.Reaction{
			UserID:   userID,
			UserName: name,
			Emoji:    emoji,
			Version:  r.confirmed[k].version,
		})
	}
	slices.SortFunc(out, func(a, b model.Reaction) int { return cmp.Compare(a.UserID, b.UserID) })
	return out
}

// Forget drops everything known about messageID, used once it is deleted.
func (r *Reconciler) Forget(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.confirmed {
		if k.messageID == messageID {
			delete(r.confirmed, k)
		}
	}
	for k := range r.pending {
		if k.messageID == messageID {
			delete(r.pending, k)
		}
	}
}
