package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trellotoyoutrack/api"
	"trellotoyoutrack/models"
)

func TestExtractCardIDFromURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected string
	}{
		{"https://trello.com/c/abc123XY/42-some-card-title", "abc123XY"},
		{"https://trello.com/c/abc123XY", "abc123XY"},
		{"abc123XY", "abc123XY"},
		{"  abc123XY  ", "abc123XY"},
		{"", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, ExtractCardIDFromURL(c.input), "input: %q", c.input)
	}
}

func TestExtractCardIDFromURL_Idempotent(t *testing.T) {
	t.Parallel()

	once := ExtractCardIDFromURL("https://trello.com/c/abc123XY/42-title")
	twice := ExtractCardIDFromURL(once)
	assert.Equal(t, once, twice)
}

func TestMapPriority(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"1": "Highest",
		"2": "Critical",
		"3": "High",
		"4": "Medium",
		"5": "Low",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, MapPriority(input))
	}

	// マッピングにない値はすべてMediumになる
	for _, input := range []string{"0", "6", "high", "", "abc"} {
		assert.Equal(t, "Medium", MapPriority(input), "input: %q", input)
	}
}

func TestFormatComments(t *testing.T) {
	t.Parallel()

	resolver := NewIdentityResolver(map[string]models.IdentityEntry{
		"tsuyoshi_k": {TrelloFullName: "Tsuyoshi Kato", YouTrackEmail: "tsuyoshi@example.com"},
	})
	exporter := NewExporter(nil, resolver)

	comment := func(username, fullName, date, text string) api.TrelloAction {
		var a api.TrelloAction
		a.MemberCreator.Username = username
		a.MemberCreator.FullName = fullName
		a.Date = date
		a.Data.Text = text
		return a
	}

	comments := []api.TrelloAction{
		comment("tsuyoshi_k", "T. Kato", "2024-05-01", "first"),
		comment("", "", "2024-05-02", ""), // 空コメントは除外される
		comment("someone", "Someone Else", "2024-05-03", "second"),
		comment("", "", "2024-05-04", "third"),
	}

	result := exporter.FormatComments(comments)

	// 空コメント1件を除いた3件が区切り2つで結合される
	assert.Equal(t, 2, strings.Count(result, models.CommentSeparator))
	assert.Contains(t, result, "[Tsuyoshi Kato on 2024-05-01]\nfirst")
	assert.Contains(t, result, "[Someone Else on 2024-05-03]\nsecond")
	assert.Contains(t, result, "[Unknown on 2024-05-04]\nthird")
	assert.NotContains(t, result, "2024-05-02")
}

func TestFormatComments_AllEmpty(t *testing.T) {
	t.Parallel()

	exporter := NewExporter(nil, NewIdentityResolver(nil))

	var empty api.TrelloAction
	empty.Data.Text = ""
	assert.Equal(t, "", exporter.FormatComments([]api.TrelloAction{empty}))
	assert.Equal(t, "", exporter.FormatComments(nil))
}

func TestExtractLinkBuckets(t *testing.T) {
	t.Parallel()

	attachments := []api.TrelloAttachment{
		{Name: "fix", URL: "https://github.com/org/repo/pull/12"},
		{Name: "bug", URL: "https://github.com/org/repo/issues/34"},
		{Name: "rev", URL: "https://github.com/org/repo/commit/deadbeef"},
		{Name: "doc", URL: "https://docs.google.com/document/d/xyz"},
		{Name: "sheet", URL: "https://drive.google.com/file/d/abc"},
		{Name: "other", URL: "https://example.com/page"},
		{Name: "upload.png", URL: "https://trello.com/1/cards/x/attachments/y", IsUpload: true},
	}

	buckets := extractLinkBuckets(attachments)

	assert.Equal(t, "[fix](https://github.com/org/repo/pull/12)", buckets.GitHubPRs)
	assert.Equal(t, "[bug](https://github.com/org/repo/issues/34)", buckets.GitHubIssues)
	assert.Equal(t, "[rev](https://github.com/org/repo/commit/deadbeef)", buckets.GitHubCommits)
	assert.Equal(t, "[doc](https://docs.google.com/document/d/xyz)\n[sheet](https://drive.google.com/file/d/abc)", buckets.GoogleDriveFiles)
}

func TestExtractLinkBuckets_PullTakesPrecedence(t *testing.T) {
	t.Parallel()

	// /pull/ と /issues/ を両方含むURLはPRバケットに入る
	attachments := []api.TrelloAttachment{
		{Name: "x", URL: "https://github.com/org/repo/pull/1/issues/2"},
	}
	buckets := extractLinkBuckets(attachments)
	assert.NotEmpty(t, buckets.GitHubPRs)
	assert.Empty(t, buckets.GitHubIssues)
}

func TestCardStoryPoints(t *testing.T) {
	t.Parallel()

	data := func(value string) []api.TrelloPluginData {
		return []api.TrelloPluginData{{IDPlugin: cardSizePluginID, Value: value}}
	}

	sp, ok := cardStoryPoints(data(`{"size": 5}`))
	require.True(t, ok)
	assert.Equal(t, 5, sp)

	// size → points → estimate の優先順位
	sp, ok = cardStoryPoints(data(`{"points": 3, "estimate": 8}`))
	require.True(t, ok)
	assert.Equal(t, 3, sp)

	sp, ok = cardStoryPoints(data(`{"estimate": "8"}`))
	require.True(t, ok)
	assert.Equal(t, 8, sp)

	_, ok = cardStoryPoints(data(`{"size": "abc"}`))
	assert.False(t, ok)

	_, ok = cardStoryPoints(data(`not json`))
	assert.False(t, ok)

	_, ok = cardStoryPoints(nil)
	assert.False(t, ok)

	// 別プラグインのデータは無視される
	_, ok = cardStoryPoints([]api.TrelloPluginData{{IDPlugin: "ffffffffffffffffffffffff", Value: `{"size": 5}`}})
	assert.False(t, ok)
}

func TestPluginValueString_Priority(t *testing.T) {
	t.Parallel()

	data := []api.TrelloPluginData{{IDPlugin: cardPriorityPluginID, Value: `{"priority": 2}`}}
	assert.Equal(t, "2", pluginValueString(data, cardPriorityPluginID, "priority"))
	assert.Equal(t, "Critical", MapPriority(pluginValueString(data, cardPriorityPluginID, "priority")))

	data = []api.TrelloPluginData{{IDPlugin: cardPriorityPluginID, Value: `{"priority": "1"}`}}
	assert.Equal(t, "1", pluginValueString(data, cardPriorityPluginID, "priority"))

	assert.Equal(t, "", pluginValueString(nil, cardPriorityPluginID, "priority"))
	data = []api.TrelloPluginData{{IDPlugin: cardPriorityPluginID, Value: `broken`}}
	assert.Equal(t, "", pluginValueString(data, cardPriorityPluginID, "priority"))
}

func TestFormatChecklists(t *testing.T) {
	t.Parallel()

	checklists := []api.TrelloChecklist{
		{
			Name: "手順",
			CheckItems: []api.TrelloCheckItem{
				{Name: "done item", State: "complete"},
				{Name: "open item", State: "incomplete"},
			},
		},
	}

	result := formatChecklists(checklists)
	assert.Equal(t, "手順:\n  ✓ done item\n  ☐ open item", result)
	assert.Equal(t, "", formatChecklists(nil))
}

func TestFormatMembersAndLabels(t *testing.T) {
	t.Parallel()

	members := []api.TrelloMember{
		{Username: "alice_a", FullName: "Alice A"},
		{Username: "bob_b"}, // フルネームがない場合はユーザー名
	}
	assert.Equal(t, "Alice A, bob_b", formatMembers(members))

	labels := []api.TrelloLabel{
		{Name: "bug", Color: "red"},
		{Color: "green"}, // 名前がない場合は色
	}
	assert.Equal(t, "bug, green", formatLabels(labels))
}
