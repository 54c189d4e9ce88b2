package domain

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&GuildSettings{}, &Thread{}, &ThreadMessage{}, &Block{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func ptr[T any](v T) *T { return &v }

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		GuildSettings{}.TableName(): "guild_settings",
		Thread{}.TableName():        "threads",
		ThreadMessage{}.TableName(): "thread_messages",
		Block{}.TableName():         "blocks",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()
	if !m.HasIndex(&Thread{}, "ux_open_thread") {
		t.Fatalf("expected partial unique index ux_open_thread on threads")
	}
	if !m.HasIndex(&ThreadMessage{}, "ux_thread_reply_id") {
		t.Fatalf("expected unique index ux_thread_reply_id on thread_messages")
	}
}

func TestThread_OnlyOneOpenPerGuildUser(t *testing.T) {
	db := newDomainDB(t)

	first := &Thread{GuildID: "g1", UserID: "u1", ChannelID: "c1"}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if err := db.Create(&Thread{GuildID: "g1", UserID: "u1", ChannelID: "c2"}).Error; err == nil {
		t.Fatalf("expected unique violation for second open thread")
	}
	// Other guild is fine.
	if err := db.Create(&Thread{GuildID: "g2", UserID: "u1", ChannelID: "c3"}).Error; err != nil {
		t.Fatalf("insert other guild: %v", err)
	}

	// Once closed, a new open row is allowed.
	if err := db.Model(first).Update("closed_by_id", "staff").Error; err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := db.Create(&Thread{GuildID: "g1", UserID: "u1", ChannelID: "c4"}).Error; err != nil {
		t.Fatalf("insert after close: %v", err)
	}
}

func TestThreadMessage_ReplyIDUniqueAndCascade(t *testing.T) {
	db := newDomainDB(t)
	th := &Thread{GuildID: "g", UserID: "u", ChannelID: "c"}
	if err := db.Create(th).Error; err != nil {
		t.Fatalf("thread: %v", err)
	}

	// Inbound rows (nil reply id) never collide.
	for i := 0; i < 2; i++ {
		if err := db.Create(&ThreadMessage{ThreadID: th.ThreadID, GuildID: "g", UserID: "u"}).Error; err != nil {
			t.Fatalf("inbound %d: %v", i, err)
		}
	}
	if err := db.Create(&ThreadMessage{ThreadID: th.ThreadID, GuildID: "g", UserID: "u", LocalThreadMessageID: ptr(1)}).Error; err != nil {
		t.Fatalf("reply 1: %v", err)
	}
	if err := db.Create(&ThreadMessage{ThreadID: th.ThreadID, GuildID: "g", UserID: "u", LocalThreadMessageID: ptr(1)}).Error; err == nil {
		t.Fatalf("expected duplicate reply id to fail")
	}

	if err := db.Delete(&Thread{}, th.ThreadID).Error; err != nil {
		t.Fatalf("delete thread: %v", err)
	}
	var cnt int64
	db.Model(&ThreadMessage{}).Where("thread_id = ?", th.ThreadID).Count(&cnt)
	if cnt != 0 {
		t.Fatalf("expected messages to cascade-delete, got %d", cnt)
	}
}

func TestGuildSettings_Templates(t *testing.T) {
	var nilSettings *GuildSettings
	if nilSettings.Greeting() != "" || nilSettings.Farewell() != "" {
		t.Fatalf("nil settings should have no templates")
	}
	s := &GuildSettings{GreetingMessage: ptr("hi"), FarewellMessage: ptr("bye")}
	if s.Greeting() != "hi" || s.Farewell() != "bye" {
		t.Fatalf("templates not returned: %+v", s)
	}
}

func TestThread_Open(t *testing.T) {
	th := &Thread{}
	if !th.Open() {
		t.Fatalf("nil ClosedByID should be open")
	}
	th.ClosedByID = ptr("x")
	if th.Open() {
		t.Fatalf("closed thread reported open")
	}
}
