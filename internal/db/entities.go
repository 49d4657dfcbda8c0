package db

import (
	"time"
)

type (
	// Policy is the per-group rule bundle consulted by the classifier.
	Policy struct {
		DeletePromotions        bool   `db:"delete_promotions"`
		DeleteLinks             bool   `db:"delete_links"`
		DeleteJoinLeave         bool   `db:"delete_join_leave"`
		MaxWordCount            int    `db:"max_word_count"`
		WarningTimerSeconds     int    `db:"warning_timer_seconds"`
		WelcomeMessageTemplate  string `db:"welcome_message_template"`
		WelcomeTimerSeconds     int    `db:"welcome_timer_seconds"`
		AdminsExemptBannedWords bool   `db:"admins_exempt_banned_words"`
	}

	Group struct {
		ChatID    int64     `db:"chat_id"`
		Title     string    `db:"title"`
		AddedBy   int64     `db:"added_by"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
		Policy
	}

	BannedWord struct {
		ChatID    int64     `db:"chat_id"`
		Word      string    `db:"word"`
		AddedBy   int64     `db:"added_by"`
		CreatedAt time.Time `db:"created_at"`
	}

	Warning struct {
		ID             int64     `db:"id"`
		ChatID         int64     `db:"chat_id"`
		TargetID       int64     `db:"target_id"`
		ActorID        int64     `db:"actor_id"`
		ActorAnonymous bool      `db:"actor_anonymous"`
		Reason         string    `db:"reason"`
		CreatedAt      time.Time `db:"created_at"`
	}

	Ban struct {
		ID             int64      `db:"id"`
		ChatID         int64      `db:"chat_id"`
		TargetID       int64      `db:"target_id"`
		ActorID        int64      `db:"actor_id"`
		ActorAnonymous bool       `db:"actor_anonymous"`
		Reason         string     `db:"reason"`
		CreatedAt      time.Time  `db:"created_at"`
		Active         bool       `db:"active"`
		DeactivatedAt  *time.Time `db:"deactivated_at"`
	}

	Mute struct {
		ID             int64      `db:"id"`
		ChatID         int64      `db:"chat_id"`
		TargetID       int64      `db:"target_id"`
		ActorID        int64      `db:"actor_id"`
		ActorAnonymous bool       `db:"actor_anonymous"`
		Reason         string     `db:"reason"`
		CreatedAt      time.Time  `db:"created_at"`
		MuteUntil      time.Time  `db:"mute_until"`
		Active         bool       `db:"active"`
		DeactivatedAt  *time.Time `db:"deactivated_at"`
	}

	Report struct {
		ID         int64        `db:"id"`
		ChatID     int64        `db:"chat_id"`
		ReporterID int64        `db:"reporter_id"`
		TargetID   int64        `db:"target_id"`
		Reason     string       `db:"reason"`
		Status     ReportStatus `db:"status"`
		CreatedAt  time.Time    `db:"created_at"`
		ResolvedBy *int64       `db:"resolved_by"`
		ResolvedAt *time.Time   `db:"resolved_at"`
	}

	// PendingDeletion is one outstanding deferred message delete.
	PendingDeletion struct {
		ID        int64     `db:"id"`
		ChatID    int64     `db:"chat_id"`
		MessageID int       `db:"message_id"`
		DueAt     time.Time `db:"due_at"`
	}

	ReportStatus string
)

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusResolved ReportStatus = "resolved"
)
