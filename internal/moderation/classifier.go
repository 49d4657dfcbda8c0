package moderation

import (
	"strings"

	"github.com/iamwavecut/groupwarden/internal/db"
)

const (
	ReasonJoinLeave  = "join/leave message"
	ReasonTooLong    = "too long"
	ReasonPromotion  = "promotion"
	ReasonLink       = "link"
	ReasonBannedWord = "banned word"
)

type Verdict struct {
	Delete bool
	Reason string
}

var Allow = Verdict{}

func deleteWith(reason string) Verdict {
	return Verdict{Delete: true, Reason: reason}
}

type rule func(msg Message, policy db.Policy, bannedWords []string) (string, bool)

var rules = []rule{
	joinLeaveRule,
	wordCountRule,
	promotionRule,
	linkRule,
	bannedWordRule,
}

// Classify decides whether msg must be removed. The first matching rule wins.
// Exempt senders are allowed outright, unless the group keeps banned words
// binding for admins, in which case only that rule applies to them.
func Classify(msg Message, sender SenderContext, policy db.Policy, bannedWords []string) Verdict {
	if sender.Exempt() {
		if policy.AdminsExemptBannedWords {
			return Allow
		}
		if reason, ok := bannedWordRule(msg, policy, bannedWords); ok {
			return deleteWith(reason)
		}
		return Allow
	}

	for _, r := range rules {
		if reason, ok := r(msg, policy, bannedWords); ok {
			return deleteWith(reason)
		}
	}
	return Allow
}

func joinLeaveRule(msg Message, policy db.Policy, _ []string) (string, bool) {
	return ReasonJoinLeave, policy.DeleteJoinLeave && msg.IsJoinLeave
}

func wordCountRule(msg Message, policy db.Policy, _ []string) (string, bool) {
	if policy.MaxWordCount <= 0 {
		return "", false
	}
	return ReasonTooLong, len(strings.Fields(msg.Text)) > policy.MaxWordCount
}

func promotionRule(msg Message, policy db.Policy, _ []string) (string, bool) {
	return ReasonPromotion, policy.DeletePromotions && isPromotion(msg)
}

func linkRule(msg Message, policy db.Policy, _ []string) (string, bool) {
	return ReasonLink, policy.DeleteLinks && hasLink(msg)
}

func bannedWordRule(msg Message, _ db.Policy, bannedWords []string) (string, bool) {
	return ReasonBannedWord, containsBannedWord(msg.Text, bannedWords)
}
