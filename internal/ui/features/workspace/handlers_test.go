package workspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaped-ai/playground/internal/testutil"
	"github.com/shaped-ai/playground/internal/ui/features"
	"github.com/shaped-ai/playground/internal/ui/notifier"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/shaped-ai/playground/pkg/core"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	windows := NewWindows(time.Hour)
	t.Cleanup(windows.CloseAll)

	handlers := NewHandlers(Config{
		Store:        fixture.Store,
		SessionStore: fixture.SessionStore,
		Notifier:     fixture.Notifier,
		Windows:      windows,
		KeepAlive:    10 * time.Millisecond,
		Logger:       testutil.NewTestLogger(t),
	})
	return handlers, fixture
}

// openWindow loads the page at target and returns the window it opened.
func openWindow(t *testing.T, h *Handlers, target string, cookies ...*http.Cookie) (*Window, string) {
	t.Helper()

	before := h.windows.Len()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.Page(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, before+1, h.windows.Len())

	body := rec.Body.String()
	h.windows.mu.Lock()
	defer h.windows.mu.Unlock()
	for _, w := range h.windows.byID {
		if strings.Contains(body, "window="+w.ID) {
			return w, body
		}
	}
	t.Fatal("opened window not found in page")
	return nil, ""
}

// post sends signals for win to handler and returns the SSE body.
func post(t *testing.T, handler http.HandlerFunc, method, target string, signals Signals, pathParams ...string) string {
	t.Helper()

	req := features.SignalsRequest(t, method, target, signals)
	if len(pathParams) == 2 {
		req = features.RequestWithPathParam(req, pathParams[0], pathParams[1])
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func storedState(t *testing.T, store core.PartitionStore, key string) *core.QueryPageState {
	t.Helper()

	record, err := store.Load(key)
	require.NoError(t, err)
	if record == nil {
		return nil
	}
	var state core.QueryPageState
	require.NoError(t, json.Unmarshal(record, &state))
	return &state
}

func tokenFor(t *testing.T, state *core.QueryPageState) string {
	t.Helper()

	token := workspace.NewCodec(nil).Encode(state)
	require.NotEmpty(t, token)
	return token
}

func sharedState() *core.QueryPageState {
	return &core.QueryPageState{
		Tabs: []core.QueryTabState{
			{ID: "t1", Name: "Shared ranking", Content: "query: {}", Language: core.LanguageYAML},
			{ID: "t2", Name: "Shared sql", Content: "SELECT 1", Language: core.LanguageSQL},
		},
		ActiveTabID: "t2",
	}
}

// =============================================================================
// Page Tests
// =============================================================================

func TestPage(t *testing.T) {
	tests := []struct {
		name     string
		wantBody []string
	}{
		{
			name: "renders the workspace shell",
			wantBody: []string{
				"<!doctype html>",
				"<title>Workspace - Playground</title>",
				`id="workspace"`,
				"data-init",
				"/workspace/updates",
				"popstate__window",
				"/static/workspace.css",
				"Query 1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupTestHandlers(t)

			win, body := openWindow(t, h, "/")

			for _, want := range tt.wantBody {
				assert.Contains(t, body, want, "response should contain %q", want)
			}
			assert.Contains(t, body, win.ID)
			assert.Equal(t, workspace.DefaultPartitionKey, win.Partition)
		})
	}
}

func TestPage_BootstrapsAndPersistsDefaultTab(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	_, body := openWindow(t, h, "/")

	stored := storedState(t, fixture.Store, workspace.DefaultPartitionKey)
	require.NotNil(t, stored)
	require.Len(t, stored.Tabs, 1)
	assert.Equal(t, stored.Tabs[0].ID, stored.ActiveTabID)
	assert.Contains(t, body, "history.replaceState", "the page should rewrite its URL to the bootstrapped workspace")
}

func TestPage_RestoresStoredPartition(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	record, err := json.Marshal(sharedState())
	require.NoError(t, err)
	require.NoError(t, fixture.Store.Save(workspace.DefaultPartitionKey, record))

	win, body := openWindow(t, h, "/")

	assert.Contains(t, body, "Shared ranking")
	win.Session.Do(func(s *workspace.Session) {
		assert.Equal(t, "t2", s.Tabs.ActiveTabID())
		assert.Equal(t, workspace.StateLive, s.Bridge.State())
	})
}

func TestPage_URLTokenWinsAndIsNotPersistedUntilSettled(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	win, body := openWindow(t, h, "/?q="+url.QueryEscape(tokenFor(t, sharedState())))

	assert.Contains(t, body, "Shared ranking")
	assert.Contains(t, body, "Shared sql")
	assert.NotContains(t, body, "history.replaceState", "restoring from the URL must not rewrite it")
	assert.Nil(t, storedState(t, fixture.Store, workspace.DefaultPartitionKey), "restored state must not be persisted")

	assert.Eventually(t, func() bool {
		var live bool
		win.Session.Do(func(s *workspace.Session) { live = s.Bridge.State() == workspace.StateLive })
		return live
	}, time.Second, 5*time.Millisecond)

	// The first mutation after settling persists.
	post(t, h.AddTab, http.MethodPost, "/api/tabs", Signals{WindowID: win.ID})
	stored := storedState(t, fixture.Store, workspace.DefaultPartitionKey)
	require.NotNil(t, stored)
	assert.Len(t, stored.Tabs, 3)
}

func TestPage_UndecodableTokenFallsBackToStorage(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	record, err := json.Marshal(sharedState())
	require.NoError(t, err)
	require.NoError(t, fixture.Store.Save(workspace.DefaultPartitionKey, record))

	_, body := openWindow(t, h, "/?q=not-a-token")
	assert.Contains(t, body, "Shared ranking")
}

// =============================================================================
// Mutation Tests
// =============================================================================

func TestAddTab_RewritesURLAndPersists(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")

	body := post(t, h.AddTab, http.MethodPost, "/api/tabs", Signals{WindowID: win.ID})

	assert.Contains(t, body, "event: datastar-patch-elements")
	assert.Contains(t, body, "Query 2")
	assert.Contains(t, body, "history.replaceState")
	assert.NotContains(t, body, "history.pushState")
	assert.Contains(t, body, "datastar-patch-signals", "the new tab's editor signals should be sent")

	stored := storedState(t, fixture.Store, workspace.DefaultPartitionKey)
	require.NotNil(t, stored)
	require.Len(t, stored.Tabs, 2)
	assert.Equal(t, stored.Tabs[1].ID, stored.ActiveTabID)
}

func TestActivateTab_PushesHistory(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")
	post(t, h.AddTab, http.MethodPost, "/api/tabs", Signals{WindowID: win.ID})

	var first string
	win.Session.Do(func(s *workspace.Session) { first = s.Tabs.Tabs()[0].ID })

	body := post(t, h.ActivateTab, http.MethodPost, "/api/tabs/"+first+"/activate", Signals{WindowID: win.ID}, "id", first)

	assert.Contains(t, body, "history.pushState")
	assert.Contains(t, body, "Query 1")
	assert.Contains(t, body, "datastar-patch-signals")

	stored := storedState(t, fixture.Store, workspace.DefaultPartitionKey)
	require.NotNil(t, stored)
	assert.Equal(t, first, stored.ActiveTabID)
}

func TestUpdateTab(t *testing.T) {
	tests := []struct {
		name        string
		signals     func(tab core.QueryTabState) Signals
		wantContent string
		wantBody    []string
		wantAbsent  []string
	}{
		{
			name: "content edit rewrites the URL in place",
			signals: func(tab core.QueryTabState) Signals {
				return Signals{Name: tab.Name, Content: "query: {limit: 5}", Language: "yaml", Params: "limit=5\nuser=ana\n"}
			},
			wantContent: "query: {limit: 5}",
			wantBody:    []string{"history.replaceState"},
			wantAbsent:  []string{"history.pushState", "datastar-patch-signals"},
		},
		{
			name: "invalid language is rejected",
			signals: func(tab core.QueryTabState) Signals {
				return Signals{Name: tab.Name, Content: "changed", Language: "python"}
			},
			wantBody:   []string{"invalid tab update"},
			wantAbsent: []string{"history.replaceState"},
		},
		{
			name: "malformed parameter is rejected",
			signals: func(tab core.QueryTabState) Signals {
				return Signals{Name: tab.Name, Content: "changed", Language: "yaml", Params: "no-equals-sign"}
			},
			wantBody:   []string{"invalid parameter"},
			wantAbsent: []string{"history.replaceState"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t)
			win, _ := openWindow(t, h, "/")

			var tab core.QueryTabState
			win.Session.Do(func(s *workspace.Session) { tab, _ = s.Tabs.ActiveTab() })

			signals := tt.signals(tab)
			signals.WindowID = win.ID
			body := post(t, h.UpdateTab, http.MethodPost, "/api/tabs/"+tab.ID, signals, "id", tab.ID)

			for _, want := range tt.wantBody {
				assert.Contains(t, body, want)
			}
			for _, absent := range tt.wantAbsent {
				assert.NotContains(t, body, absent)
			}

			stored := storedState(t, fixture.Store, workspace.DefaultPartitionKey)
			require.NotNil(t, stored)
			if tt.wantContent != "" {
				assert.Equal(t, tt.wantContent, stored.Tabs[0].Content)
				assert.Equal(t, core.NumberParam(5), stored.Tabs[0].ParameterValues["limit"])
				assert.Equal(t, core.StringParam("ana"), stored.Tabs[0].ParameterValues["user"])
			} else {
				assert.Equal(t, tab.Content, stored.Tabs[0].Content)
			}
		})
	}
}

func TestCloseTab_LastTabLeavesFreshDefault(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")

	var first string
	win.Session.Do(func(s *workspace.Session) { first = s.Tabs.ActiveTabID() })

	post(t, h.CloseTab, http.MethodDelete, "/api/tabs/"+first, Signals{WindowID: win.ID}, "id", first)

	stored := storedState(t, fixture.Store, workspace.DefaultPartitionKey)
	require.NotNil(t, stored)
	require.Len(t, stored.Tabs, 1)
	assert.NotEqual(t, first, stored.Tabs[0].ID)
}

func TestActivateTab_UnknownIDIsNoOp(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")
	before := storedState(t, fixture.Store, workspace.DefaultPartitionKey)

	updates := fixture.Notifier.Subscribe(win.Partition, "")
	defer fixture.Notifier.Unsubscribe(updates)

	body := post(t, h.ActivateTab, http.MethodPost, "/api/tabs/missing/activate", Signals{WindowID: win.ID}, "id", "missing")

	assert.NotContains(t, body, "history.pushState")
	assert.Equal(t, before, storedState(t, fixture.Store, workspace.DefaultPartitionKey))
	select {
	case ev := <-updates:
		t.Fatalf("no-op should not notify, got %+v", ev)
	default:
	}
}

func TestSaveAndRun_PushHistory(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")

	updates := fixture.Notifier.Subscribe(win.Partition, "")
	defer fixture.Notifier.Unsubscribe(updates)

	body := post(t, h.Save, http.MethodPost, "/api/workspace/save", Signals{WindowID: win.ID})
	assert.Contains(t, body, "history.pushState")
	select {
	case ev := <-updates:
		assert.Equal(t, win.ID, ev.Origin)
	default:
		t.Fatal("save should notify other windows")
	}

	body = post(t, h.Run, http.MethodPost, "/api/workspace/run", Signals{WindowID: win.ID})
	assert.Contains(t, body, "history.pushState")
}

func TestPopState(t *testing.T) {
	tests := []struct {
		name    string
		signals func(t *testing.T) Signals
		want    string
	}{
		{
			name: "embedded snapshot is applied without decoding",
			signals: func(*testing.T) Signals {
				return Signals{NavState: sharedState(), NavSearch: "?q=garbage"}
			},
			want: "t2",
		},
		{
			name: "URL token is decoded when no snapshot is attached",
			signals: func(t *testing.T) Signals {
				return Signals{NavSearch: "?q=" + url.QueryEscape(tokenFor(t, sharedState()))}
			},
			want: "t2",
		},
		{
			name: "undecodable URL token is ignored",
			signals: func(*testing.T) Signals {
				return Signals{NavSearch: "?q=garbage"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t)
			win, _ := openWindow(t, h, "/")

			var original string
			win.Session.Do(func(s *workspace.Session) { original = s.Tabs.ActiveTabID() })

			signals := tt.signals(t)
			signals.WindowID = win.ID
			body := post(t, h.PopState, http.MethodPost, "/api/workspace/popstate", signals)

			assert.NotContains(t, body, "history.pushState", "navigation must never write history")
			assert.NotContains(t, body, "history.replaceState", "navigation must never write history")

			stored := storedState(t, fixture.Store, workspace.DefaultPartitionKey)
			require.NotNil(t, stored)
			if tt.want == "" {
				assert.Equal(t, original, stored.ActiveTabID)
				return
			}
			assert.Equal(t, tt.want, stored.ActiveTabID, "restored navigation state should persist")
			assert.Contains(t, body, "Shared ranking")
		})
	}
}

func TestMutation_UnknownWindowReloads(t *testing.T) {
	h, _ := setupTestHandlers(t)

	body := post(t, h.AddTab, http.MethodPost, "/api/tabs", Signals{WindowID: "gone"})
	assert.Contains(t, body, "window.location.reload()")
}

// =============================================================================
// Export Tests
// =============================================================================

func TestExport(t *testing.T) {
	tests := []struct {
		name            string
		format          string
		wantStatus      int
		wantContentType string
		wantBody        string
	}{
		{name: "json by default", wantStatus: http.StatusOK, wantContentType: "application/json", wantBody: `"activeTabId": "t2"`},
		{name: "yaml", format: "yaml", wantStatus: http.StatusOK, wantContentType: "application/yaml", wantBody: "activeTabId: t2"},
		{name: "unknown format", format: "toml", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupTestHandlers(t)
			win, _ := openWindow(t, h, "/?q="+url.QueryEscape(tokenFor(t, sharedState())))

			target := "/api/workspace/export?window=" + win.ID
			if tt.format != "" {
				target += "&format=" + tt.format
			}
			rec := httptest.NewRecorder()
			h.Export(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantContentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestExport_UnknownWindow(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/workspace/export?window=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Identity Tests
// =============================================================================

func TestSetIdentity_SelectsPartition(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")

	req := features.SignalsRequest(t, http.MethodPost, "/api/identity", Signals{WindowID: win.ID, Identity: " alice ", Persist: true})
	rec := httptest.NewRecorder()
	h.SetIdentity(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.location")
	assert.Equal(t, 0, h.windows.Len(), "the old window should be closed")

	cookies := rec.Result().Cookies()
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{SessionCookie, IdentityCookie}, names)

	aliceWin, body := openWindow(t, h, "/", cookies...)
	assert.Equal(t, workspace.PartitionKeyFor("alice"), aliceWin.Partition)
	assert.Equal(t, "alice", aliceWin.Identity)
	assert.Contains(t, body, "query_page_state:alice")
	assert.NotNil(t, storedState(t, fixture.Store, "query_page_state:alice"))
}

func TestSetIdentity_SessionOnly(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := features.SignalsRequest(t, http.MethodPost, "/api/identity", Signals{Identity: "bob"})
	rec := httptest.NewRecorder()
	h.SetIdentity(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Zero(t, cookies[0].MaxAge, "the session marker should not outlive the browser session")
}

func TestClearIdentity_ExpiresBothMarkers(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := features.SignalsRequest(t, http.MethodDelete, "/api/identity", Signals{})
	rec := httptest.NewRecorder()
	h.ClearIdentity(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Negative(t, c.MaxAge, "%s should be expired", c.Name)
	}
}

// =============================================================================
// Updates Tests - SSE endpoint for cross-window notices
// =============================================================================

func updatesRequest(t *testing.T, windowID string, timeout time.Duration) (*http.Request, context.CancelFunc) {
	t.Helper()

	signals, err := json.Marshal(Signals{WindowID: windowID})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/workspace/updates?datastar="+url.QueryEscape(string(signals)), nil)
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	return req.WithContext(ctx), cancel
}

func TestUpdates_NoticeFromOtherWindow(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")

	req, cancel := updatesRequest(t, win.ID, 300*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return fixture.Notifier.Len() == 1 }, time.Second, 5*time.Millisecond)
	fixture.Notifier.Publish(notifier.Event{Partition: win.Partition, Origin: "another-window"})

	<-done

	body := rec.Body.String()
	assert.GreaterOrEqual(t, strings.Count(body, "event:"), 1)
	assert.Contains(t, body, otherWindowNotice)
}

func TestUpdates_IgnoresOwnChanges(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")

	req, cancel := updatesRequest(t, win.ID, 200*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return fixture.Notifier.Len() == 1 }, time.Second, 5*time.Millisecond)
	fixture.Notifier.Publish(notifier.Event{Partition: win.Partition, Origin: win.ID})
	fixture.Notifier.Publish(notifier.Event{Partition: "query_page_state:someone-else", Origin: "x"})

	<-done

	assert.Equal(t, 0, strings.Count(rec.Body.String(), "event:"))
}

func TestUpdates_UnknownWindow(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req, cancel := updatesRequest(t, "nope", 50*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	h.Updates(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdates_OwnChangeDoesNotHideOtherWindow(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	win, _ := openWindow(t, h, "/")

	req, cancel := updatesRequest(t, win.ID, 300*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Updates(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return fixture.Notifier.Len() == 1 }, time.Second, 5*time.Millisecond)
	fixture.Notifier.Publish(notifier.Event{Partition: win.Partition, Origin: win.ID})
	fixture.Notifier.Publish(notifier.Event{Partition: win.Partition, Origin: "another-window"})

	<-done

	assert.Contains(t, rec.Body.String(), otherWindowNotice)
}
