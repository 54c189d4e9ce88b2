// Package domain defines the persistence models for guild settings, relay
// threads, relayed messages, and blocks. These types are mapped with GORM and
// form the data layer of the modmail relay.
//
// Platform identifiers (guilds, users, channels, messages, roles) are opaque
// snowflake strings and are stored as varchar(32).
package domain

import (
	"time"
)

// GuildSettings holds per-guild relay configuration. Rows are created lazily
// by the settings upsert and are read-only to the relay itself.
//
// Fields:
//   - GuildID: guild snowflake, primary key.
//   - ModmailChannelID: optional parent channel for new thread channels.
//   - GreetingMessage / FarewellMessage: optional templates (1..1900 chars).
//   - SimpleMode: plain-text rendering instead of rich cards.
//   - AlertRoleID: optional role mentioned when a thread opens.
type GuildSettings struct {
	GuildID          string    `json:"guildId"          gorm:"type:varchar(32);primaryKey" msgpack:"guild_id"`
	ModmailChannelID *string   `json:"modmailChannelId" gorm:"type:varchar(32)"            msgpack:"modmail_channel_id"`
	GreetingMessage  *string   `json:"greetingMessage"  gorm:"type:text"                   msgpack:"greeting_message"`
	FarewellMessage  *string   `json:"farewellMessage"  gorm:"type:text"                   msgpack:"farewell_message"`
	SimpleMode       bool      `json:"simpleMode"       gorm:"not null;default:false"      msgpack:"simple_mode"`
	AlertRoleID      *string   `json:"alertRoleId"      gorm:"type:varchar(32)"            msgpack:"alert_role_id"`
	CreatedAt        time.Time `json:"createdAt"                                           msgpack:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt"                                           msgpack:"updated_at"`
}

// TableName returns the database table name for GuildSettings.
func (GuildSettings) TableName() string { return "guild_settings" }

// Greeting returns the greeting template, or "" when none is configured.
func (s *GuildSettings) Greeting() string {
	if s == nil || s.GreetingMessage == nil {
		return ""
	}
	return *s.GreetingMessage
}

// Farewell returns the farewell template, or "" when none is configured.
func (s *GuildSettings) Farewell() string {
	if s == nil || s.FarewellMessage == nil {
		return ""
	}
	return *s.FarewellMessage
}

// Thread is one relay session between a user and a guild, mapped to one
// channel on the host platform. A nil ClosedByID means the thread is open.
//
// The partial unique index ux_open_thread allows at most one open thread per
// (guild, user) pair; closed rows are kept and never reopened.
type Thread struct {
	ThreadID                 uint      `json:"threadId"                 gorm:"primaryKey;autoIncrement"`
	GuildID                  string    `json:"guildId"                  gorm:"type:varchar(32);not null;index:idx_threads_guild;uniqueIndex:ux_open_thread,where:closed_by_id IS NULL"`
	UserID                   string    `json:"userId"                   gorm:"type:varchar(32);not null;index:idx_threads_user;uniqueIndex:ux_open_thread,where:closed_by_id IS NULL"`
	ChannelID                string    `json:"channelId"                gorm:"type:varchar(32);not null;index"`
	LastLocalThreadMessageID int       `json:"lastLocalThreadMessageId" gorm:"not null;default:0"`
	ClosedByID               *string   `json:"closedById"               gorm:"type:varchar(32)"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`

	// Messages are cascade-deleted with their thread.
	Messages []ThreadMessage `json:"-" gorm:"foreignKey:ThreadID;references:ThreadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Thread.
func (Thread) TableName() string { return "threads" }

// Open reports whether the thread has not been closed.
func (t *Thread) Open() bool { return t.ClosedByID == nil }

// ThreadMessage is one relayed message. Staff replies carry a reply id
// (LocalThreadMessageID) unique within the thread; inbound user messages
// leave it nil and have no StaffID.
type ThreadMessage struct {
	ID                   uint      `json:"id"                   gorm:"primaryKey;autoIncrement"`
	ThreadID             uint      `json:"threadId"             gorm:"not null;index;uniqueIndex:ux_thread_reply_id,priority:1"`
	GuildID              string    `json:"guildId"              gorm:"type:varchar(32);not null"`
	UserID               string    `json:"userId"               gorm:"type:varchar(32);not null"`
	LocalThreadMessageID *int      `json:"localThreadMessageId" gorm:"uniqueIndex:ux_thread_reply_id,priority:2"`
	UserMessageID        string    `json:"userMessageId"        gorm:"type:varchar(32)"`
	GuildMessageID       string    `json:"guildMessageId"       gorm:"type:varchar(32);index"`
	StaffID              *string   `json:"staffId"              gorm:"type:varchar(32)"`
	Anon                 bool      `json:"anon"                 gorm:"not null;default:false"`
	CreatedAt            time.Time `json:"createdAt"`
}

// TableName returns the database table name for ThreadMessage.
func (ThreadMessage) TableName() string { return "thread_messages" }

// Block forbids a user from opening threads in a guild.
type Block struct {
	GuildID   string    `json:"guildId"   gorm:"type:varchar(32);primaryKey"`
	UserID    string    `json:"userId"    gorm:"type:varchar(32);primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the database table name for Block.
func (Block) TableName() string { return "blocks" }
