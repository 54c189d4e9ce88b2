package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/tbourn/go-modmail/internal/repo"
)

func TestBlocks_PutDelete(t *testing.T) {
	r, db := newRouter(t)
	path := "/guilds/" + guildID + "/blocks/" + userID

	if w := do(r, http.MethodPut, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("PUT = %d %s", w.Code, w.Body.String())
	}
	if blocked, _ := repo.IsBlocked(context.Background(), db, guildID, userID); !blocked {
		t.Fatalf("user should be blocked")
	}
	if w := do(r, http.MethodPut, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("repeat PUT = %d", w.Code)
	}
	if w := do(r, http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", w.Code)
	}
	if w := do(r, http.MethodDelete, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("second DELETE = %d", w.Code)
	}
	if w := do(r, http.MethodPut, "/guilds/"+guildID+"/blocks/bob", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad user id = %d", w.Code)
	}
}
