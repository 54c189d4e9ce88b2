package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-modmail/internal/domain"
	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/platform"
	"github.com/tbourn/go-modmail/internal/platform/fake"
	"github.com/tbourn/go-modmail/internal/queue"
	"github.com/tbourn/go-modmail/internal/repo"
)

const (
	testGuildID   = "100000000000000001"
	testChannelID = "200000000000000001"
	testUserID    = "300000000000000001"
	testStaffID   = "400000000000000001"
	testLogChan   = "500000000000000001"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(repo.SQLiteDSN(dsn)), &gorm.Config{
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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

// env is a fully wired relay over a fake transport and in-memory store.
type env struct {
	DB        *gorm.DB
	T         *fake.Transport
	Render    *Renderer
	Settings  *SettingsService
	Threads   *ThreadService
	Relay     *RelayService
	Preflight *Preflight
	Inbound   *InboundService
	Guild     platform.Guild
	User      platform.User
	Staff     platform.Member
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newServiceDB(t)
	tr := fake.New()
	r := &Renderer{P: i18n.NewPrinter(language.English), Bot: tr.BotUser()}
	log := zerolog.Nop()

	e := &env{
		DB:     db,
		T:      tr,
		Render: r,
		Guild:  platform.Guild{ID: testGuildID, Name: "Acme", IconURL: "acme.png", MemberCount: 42},
		User:   platform.User{ID: testUserID, Username: "alice", GlobalName: "Alice", AvatarURL: "alice.png"},
		Staff: platform.Member{
			GuildID: testGuildID,
			Nick:    "Mod Bob",
			User:    platform.User{ID: testStaffID, Username: "bob", AvatarURL: "bob.png"},
		},
	}
	e.Settings = &SettingsService{DB: db}
	e.Threads = &ThreadService{DB: db, Transport: tr, Settings: e.Settings, Render: r, Log: log}
	e.Relay = &RelayService{DB: db, Transport: tr, Settings: e.Settings, Render: r, Log: log}
	e.Preflight = &Preflight{DB: db, Transport: tr, Render: r, LogChannelID: testLogChan, MinWords: 5, Log: log}
	e.Inbound = &InboundService{
		Queue:     queue.NewRegistry(time.Minute),
		Preflight: e.Preflight,
		Threads:   e.Threads,
		Relay:     e.Relay,
		Log:       log,
	}

	tr.AddGuild(testUserID, e.Guild)
	tr.Members[testGuildID+"/"+testUserID] = platform.Member{GuildID: testGuildID, User: e.User}
	tr.Members[testGuildID+"/"+testStaffID] = e.Staff
	return e
}

// configure stores settings for the test guild.
func (e *env) configure(t *testing.T, mutate func(s *domain.GuildSettings)) {
	t.Helper()
	s := &domain.GuildSettings{GuildID: testGuildID, ModmailChannelID: strPtr(testChannelID)}
	cols := []string{"modmail_channel_id", "greeting_message", "farewell_message", "simple_mode", "alert_role_id"}
	if mutate != nil {
		mutate(s)
	}
	if _, err := repo.UpsertSettings(context.Background(), e.DB, s, cols); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
}

// openThread creates an open thread row bound to channel "t-open".
func (e *env) openThread(t *testing.T) *domain.Thread {
	t.Helper()
	th, err := repo.CreateThread(context.Background(), e.DB, testGuildID, testUserID, "t-open")
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	return th
}

func dm(content string) platform.Message {
	return platform.Message{
		ID:        uuid.NewString(),
		ChannelID: "dm-" + testUserID,
		Author:    platform.User{ID: testUserID, Username: "alice", GlobalName: "Alice"},
		Content:   content,
	}
}
