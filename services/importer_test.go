package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/models"
)

// fakeYouTrack はテスト用のYouTrack APIサーバーです
// 受け取った作成・更新・コメント呼び出しを記録します
type fakeYouTrack struct {
	createFail bool
	updateFail bool

	nextID   int
	created  []map[string]interface{}
	updates  map[string][]map[string]interface{}
	comments map[string][]string
	users    []api.YouTrackUser
}

func newFakeYouTrack() *fakeYouTrack {
	return &fakeYouTrack{
		updates:  map[string][]map[string]interface{}{},
		comments: map[string][]string{},
	}
}

func (f *fakeYouTrack) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && path == "/users":
			_ = json.NewEncoder(w).Encode(f.users)

		case r.Method == http.MethodPost && path == "/issues":
			if f.createFail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			var payload map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			f.created = append(f.created, payload)
			f.nextID++
			summary, _ := payload["summary"].(string)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"idReadable": fmt.Sprintf("PROJ-%d", f.nextID),
				"summary":    summary,
			})

		case r.Method == http.MethodPost && strings.HasSuffix(path, "/comments"):
			issueID := strings.TrimSuffix(strings.TrimPrefix(path, "/issues/"), "/comments")
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			f.comments[issueID] = append(f.comments[issueID], payload["text"])
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "comment"})

		case r.Method == http.MethodPost && strings.HasPrefix(path, "/issues/"):
			if f.updateFail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			issueID := strings.TrimPrefix(path, "/issues/")
			var payload struct {
				CustomFields []map[string]interface{} `json:"customFields"`
			}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			if len(payload.CustomFields) > 0 {
				f.updates[issueID] = append(f.updates[issueID], payload.CustomFields[0])
			}
			_ = json.NewEncoder(w).Encode(map[string]string{})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

// updateFor は指定イシューへの指定フィールド更新を返します
func (f *fakeYouTrack) updateFor(issueID, fieldName string) (map[string]interface{}, bool) {
	for _, update := range f.updates[issueID] {
		if update["name"] == fieldName {
			return update, true
		}
	}
	return nil, false
}

// newTestImporter はfakeYouTrackに向けたインポーターを構築します
func newTestImporter(t *testing.T, fake *fakeYouTrack, entries map[string]models.IdentityEntry, defaultAssignee string) (*Importer, *UserDirectory) {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		YouTrackURL:          srv.URL,
		YouTrackAPIToken:     "test-token",
		DefaultAssigneeEmail: defaultAssignee,
	}
	resolver := NewIdentityResolver(entries)
	importer := NewImporter(api.NewYouTrackClient(cfg), resolver, cfg)
	return importer, NewUserDirectory(fake.users)
}

func TestComposeDescription_Order(t *testing.T) {
	t.Parallel()

	row := models.CardRow{
		Description:      "本文",
		URL:              "https://trello.com/c/abc",
		Checklists:       "手順:\n  ✓ one",
		Attachments:      "spec.pdf: https://example.com/spec.pdf",
		GitHubPRs:        "[fix](https://github.com/o/r/pull/1)",
		GitHubIssues:     "[bug](https://github.com/o/r/issues/2)",
		GitHubCommits:    "[rev](https://github.com/o/r/commit/3)",
		GoogleDriveFiles: "[doc](https://docs.google.com/d/4)",
	}

	desc := ComposeDescription(row)

	// 固定ヘッダーが固定順で並ぶ
	order := []string{
		"本文",
		"**Original Trello Card:**",
		"**Checklists:**",
		"**Attachments:**",
		"**GitHub PRs:**",
		"**GitHub Issues:**",
		"**GitHub Commits:**",
		"**Google Drive Files:**",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(desc, marker)
		require.GreaterOrEqual(t, idx, 0, "missing: %s", marker)
		assert.Greater(t, idx, last, "out of order: %s", marker)
		last = idx
	}
}

func TestComposeDescription_EmptyParts(t *testing.T) {
	t.Parallel()

	desc := ComposeDescription(models.CardRow{Description: "only"})
	assert.Equal(t, "only", desc)

	assert.Equal(t, "", ComposeDescription(models.CardRow{}))
}

func TestImportRow_StoryPointsGating(t *testing.T) {
	t.Parallel()

	cases := []struct {
		points    string
		attempted bool
	}{
		{"abc", false},
		{"-3", false},
		{"0", true},
		{"5", true},
		{"", false},
	}

	for _, c := range cases {
		fake := newFakeYouTrack()
		importer, directory := newTestImporter(t, fake, nil, "")

		row := models.CardRow{CardName: "card", StoryPoints: c.points}
		result := importer.ImportRow("0-0", row, models.StateMapping{}, directory, "")
		require.NoError(t, result.Err)

		_, attempted := fake.updateFor("PROJ-1", "Story points")
		assert.Equal(t, c.attempted, attempted, "story points: %q", c.points)
	}
}

func TestImportRow_AssigneeResolved(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	fake.users = []api.YouTrackUser{
		{ID: "u1", Login: "alice.yt", FullName: "Alice Anderson", Email: "alice@example.com"},
	}
	entries := map[string]models.IdentityEntry{
		"alice_a": {TrelloFullName: "Alice Anderson", YouTrackEmail: "alice@example.com"},
	}
	importer, directory := newTestImporter(t, fake, entries, "")

	row := models.CardRow{CardName: "card", MemberUsernames: "alice_a"}
	result := importer.ImportRow("0-0", row, models.StateMapping{}, directory, "")
	require.NoError(t, result.Err)

	update, ok := fake.updateFor("PROJ-1", "Assignee")
	require.True(t, ok)
	values, ok := update["value"].([]interface{})
	require.True(t, ok)
	require.Len(t, values, 1)
	assert.Equal(t, map[string]interface{}{"login": "alice.yt"}, values[0])
}

func TestImportRow_DefaultAssigneeFallback(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	fake.users = []api.YouTrackUser{
		{ID: "u9", Login: "fallback.yt", Email: "fallback@example.com"},
	}
	importer, directory := newTestImporter(t, fake, nil, "fallback@example.com")

	// メンバーが解決できない行はデフォルト担当者に割り当てられる
	row := models.CardRow{CardName: "card", Members: "Nobody Known"}
	result := importer.ImportRow("0-0", row, models.StateMapping{}, directory, "")
	require.NoError(t, result.Err)

	update, ok := fake.updateFor("PROJ-1", "Assignee")
	require.True(t, ok)
	values := update["value"].([]interface{})
	require.Len(t, values, 1)
	assert.Equal(t, map[string]interface{}{"login": "fallback.yt"}, values[0])
}

func TestImportRow_NoAssigneeSkipped(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	importer, directory := newTestImporter(t, fake, nil, "")

	row := models.CardRow{CardName: "card", Members: "Nobody"}
	result := importer.ImportRow("0-0", row, models.StateMapping{}, directory, "")
	require.NoError(t, result.Err)

	_, ok := fake.updateFor("PROJ-1", "Assignee")
	assert.False(t, ok)

	// ステップ結果にスキップ理由が残る
	var found bool
	for _, step := range result.Steps {
		if step.Step == "assignee" {
			found = true
			assert.Equal(t, models.StepSkipped, step.Status)
		}
	}
	assert.True(t, found)
}

func TestImportRow_UpdateFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	fake.updateFail = true // フィールド更新だけ失敗、コメントは成功
	importer, directory := newTestImporter(t, fake, nil, "")

	row := models.CardRow{
		CardName: "card",
		Labels:   "bug",
		Priority: "High",
		Comments: "still posted",
	}
	result := importer.ImportRow("0-0", row, models.StateMapping{}, directory, "")

	// 行自体は成功し、後続のコメントステップも実行される
	require.NoError(t, result.Err)
	require.NotNil(t, result.Issue)
	assert.Equal(t, []string{"still posted"}, fake.comments["PROJ-1"])

	skipped := 0
	for _, step := range result.Steps {
		if step.Status == models.StepSkipped {
			skipped++
		}
	}
	assert.GreaterOrEqual(t, skipped, 2)
}

func TestImportBatch_EndToEnd(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	importer, directory := newTestImporter(t, fake, nil, "")

	cardA := models.CardRow{
		Board:    "Dev",
		List:     "Backlog",
		CardName: "Card A",
		Labels:   "bug",
		Comments: "hello",
	}
	cardB := models.CardRow{
		Board:       "Dev",
		List:        "Backlog",
		CardName:    "Card B",
		DueDate:     "2024-06-01T10:00:00.000Z",
		DueComplete: true,
	}

	stateMap := models.StateMapping{"Backlog": "Backlog State"}
	created := importer.ImportBatch("0-0", []models.CardRow{cardA, cardB}, stateMap, directory, "")

	require.Len(t, created, 2)
	assert.Equal(t, "PROJ-1", created[0].ID)
	assert.Equal(t, "PROJ-2", created[1].ID)

	// 両方の作成ペイロードに初期ステートが含まれる
	require.Len(t, fake.created, 2)
	for _, payload := range fake.created {
		fields, ok := payload["customFields"].([]interface{})
		require.True(t, ok)
		require.Len(t, fields, 1)
		field := fields[0].(map[string]interface{})
		assert.Equal(t, "State", field["name"])
		assert.Equal(t, map[string]interface{}{"name": "Backlog State", "$type": "StateBundleElement"}, field["value"])
	}

	// Card A: コメント1件とラベル
	require.Equal(t, []string{"hello"}, fake.comments["PROJ-1"])
	label, ok := fake.updateFor("PROJ-1", "Label")
	require.True(t, ok)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "bug"}}, label["value"])

	// Card B: 期限コメント1件（末尾に (Completed)）
	require.Len(t, fake.comments["PROJ-2"], 1)
	dueComment := fake.comments["PROJ-2"][0]
	assert.Contains(t, dueComment, "2024-06-01T10:00:00.000Z")
	assert.True(t, strings.HasSuffix(dueComment, "(Completed)"))
}

func TestImportBatch_CreateFailureContinues(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	fake.createFail = true
	importer, directory := newTestImporter(t, fake, nil, "")

	rows := []models.CardRow{
		{CardName: "first"},
		{CardName: "second"},
	}
	created := importer.ImportBatch("0-0", rows, models.StateMapping{}, directory, "")
	assert.Empty(t, created)
}

func TestImportRow_CommentsSplitInOrder(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	importer, directory := newTestImporter(t, fake, nil, "")

	row := models.CardRow{
		CardName: "card",
		Comments: "one" + models.CommentSeparator + "two" + models.CommentSeparator + "three",
	}
	result := importer.ImportRow("0-0", row, models.StateMapping{}, directory, "")
	require.NoError(t, result.Err)

	assert.Equal(t, []string{"one", "two", "three"}, fake.comments["PROJ-1"])
}

func TestImportRow_UntitledAndSprint(t *testing.T) {
	t.Parallel()

	fake := newFakeYouTrack()
	importer, directory := newTestImporter(t, fake, nil, "")

	result := importer.ImportRow("0-0", models.CardRow{}, models.StateMapping{}, directory, "Sprint 6")
	require.NoError(t, result.Err)
	require.Len(t, fake.created, 1)
	assert.Equal(t, "Untitled", fake.created[0]["summary"])

	sprint, ok := fake.updateFor("PROJ-1", "Sprints")
	require.True(t, ok)
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Sprint 6"}}, sprint["value"])
}
