package services

import (
	"fmt"
	"strconv"
	"strings"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/models"
	"trellotoyoutrack/utils"
)

// Importer はCardRowからYouTrackイシューを作成します
// YouTrack APIは全フィールドの原子的な作成をサポートしないため、
// 作成後に各フィールドを個別の更新呼び出しで設定します（create-then-patch）
type Importer struct {
	youtrack *api.YouTrackClient
	resolver *IdentityResolver
	config   *config.Config
}

// NewImporter は新しいインポーターを作成します
func NewImporter(youtrack *api.YouTrackClient, resolver *IdentityResolver, cfg *config.Config) *Importer {
	return &Importer{
		youtrack: youtrack,
		resolver: resolver,
		config:   cfg,
	}
}

// ComposeDescription は説明文を固定順で組み立てます
// 元の説明 → 元カードへのバックリンク → チェックリスト → 添付 → リンクバケット各種
func ComposeDescription(row models.CardRow) string {
	var parts []string

	if row.Description != "" {
		parts = append(parts, row.Description)
	}
	if row.URL != "" {
		parts = append(parts, fmt.Sprintf("\n**Original Trello Card:** %s", row.URL))
	}
	if row.Checklists != "" {
		parts = append(parts, fmt.Sprintf("\n**Checklists:**\n%s", row.Checklists))
	}
	if row.Attachments != "" {
		parts = append(parts, fmt.Sprintf("\n**Attachments:**\n%s", row.Attachments))
	}

	sections := []struct {
		header  string
		content string
	}{
		{"GitHub PRs", row.GitHubPRs},
		{"GitHub Issues", row.GitHubIssues},
		{"GitHub Commits", row.GitHubCommits},
		{"Google Drive Files", row.GoogleDriveFiles},
	}
	for _, s := range sections {
		if s.content != "" {
			parts = append(parts, fmt.Sprintf("\n**%s:**\n%s", s.header, s.content))
		}
	}

	return strings.Join(parts, "\n\n")
}

// ImportRow はCardRow 1件をYouTrackイシューとしてインポートします
// イシュー作成の失敗はその行全体の失敗となりますが、
// 以降の更新ステップは個別のベストエフォートで、失敗してもスキップ扱いで継続します
func (im *Importer) ImportRow(projectID string, row models.CardRow, stateMap models.StateMapping, directory *UserDirectory, sprintName string) models.RowResult {
	result := models.RowResult{CardName: row.CardName}

	summary := row.CardName
	if summary == "" {
		summary = "Untitled"
	}
	description := ComposeDescription(row)

	// リストにステートがマッピングされていれば作成時に初期ステートを設定する
	var createFields []api.FieldUpdate
	if state, ok := stateMap[row.List]; ok && state != "" {
		createFields = append(createFields, api.StateUpdate{State: state})
	}

	issue, err := im.youtrack.CreateIssue(projectID, summary, description, createFields)
	if err != nil {
		result.Err = fmt.Errorf("イシュー作成エラー: %w", err)
		return result
	}
	result.Issue = issue

	// 担当者の解決と割り当て
	result.Steps = append(result.Steps, im.assignStep(issue.ID, row, directory))

	// スプリント
	if sprintName != "" {
		result.Steps = append(result.Steps, im.updateStep(issue.ID, "sprint", api.SprintUpdate{Sprint: sprintName}))
	}

	// ラベル
	if labels := splitTrimmed(row.Labels); len(labels) > 0 {
		result.Steps = append(result.Steps, im.updateStep(issue.ID, "labels", api.LabelUpdate{Labels: labels}))
	}

	// 優先度
	if priority := strings.TrimSpace(row.Priority); priority != "" {
		result.Steps = append(result.Steps, im.updateStep(issue.ID, "priority", api.PriorityUpdate{Priority: priority}))
	}

	// ストーリーポイント（非数値・負数は黙ってスキップ）
	if sp := strings.TrimSpace(row.StoryPoints); sp != "" {
		if points, err := strconv.Atoi(sp); err == nil && points >= 0 {
			result.Steps = append(result.Steps, im.updateStep(issue.ID, "story points", api.StoryPointsUpdate{Points: points}))
		} else {
			result.Steps = append(result.Steps, models.StepResult{Step: "story points", Status: models.StepSkipped, Reason: fmt.Sprintf("無効な値: %q", sp)})
		}
	}

	// コメント（区切り文字列で分割し元の順序で投稿）
	if row.Comments != "" {
		result.Steps = append(result.Steps, im.commentsStep(issue.ID, row.Comments))
	}

	// 期限はコメントとして残す
	if row.DueDate != "" {
		dueText := fmt.Sprintf("**Due date from Trello:** %s", row.DueDate)
		if row.DueComplete {
			dueText += " (Completed)"
		}
		result.Steps = append(result.Steps, im.stepResult("due date comment", im.youtrack.AddComment(issue.ID, dueText)))
	}

	return result
}

// assignStep は担当者を解決して割り当てます
// ユーザー名フィールドを優先し、なければ表示名フィールドを使います
// 1人も解決できない場合は設定済みのデフォルト担当者にフォールバックします
func (im *Importer) assignStep(issueID string, row models.CardRow, directory *UserDirectory) models.StepResult {
	identifiers := splitTrimmed(row.MemberUsernames)
	if len(identifiers) == 0 {
		identifiers = splitTrimmed(row.Members)
	}

	var logins []string
	for _, identifier := range identifiers {
		if login, ok := ResolveAssigneeLogin(im.resolver, directory, identifier); ok {
			logins = append(logins, login)
		}
	}

	if len(logins) == 0 && im.config.DefaultAssigneeEmail != "" {
		if login, ok := directory.ResolveLogin(im.config.DefaultAssigneeEmail); ok {
			logins = append(logins, login)
		}
	}

	if len(logins) == 0 {
		return models.StepResult{Step: "assignee", Status: models.StepSkipped, Reason: "担当者を解決できません"}
	}
	return im.updateStep(issueID, "assignee", api.AssigneeUpdate{Logins: logins})
}

// commentsStep は結合されたコメントを分割して1件ずつ投稿します
func (im *Importer) commentsStep(issueID, comments string) models.StepResult {
	posted := 0
	for _, comment := range strings.Split(comments, models.CommentSeparator) {
		comment = strings.TrimSpace(comment)
		if comment == "" {
			continue
		}
		if err := im.youtrack.AddComment(issueID, comment); err != nil {
			utils.LogWarn("コメント投稿失敗 %s: %v", issueID, err)
			return models.StepResult{Step: "comments", Status: models.StepSkipped, Reason: err.Error()}
		}
		posted++
	}
	return models.StepResult{Step: "comments", Status: models.StepOK, Reason: fmt.Sprintf("%d 件投稿", posted)}
}

// updateStep はフィールド更新1件をベストエフォートで適用します
func (im *Importer) updateStep(issueID, step string, update api.FieldUpdate) models.StepResult {
	return im.stepResult(step, im.youtrack.ApplyFieldUpdate(issueID, update))
}

// stepResult はステップのエラーをスキップ結果に変換します
func (im *Importer) stepResult(step string, err error) models.StepResult {
	if err != nil {
		utils.LogWarn("%s 更新失敗: %v", step, err)
		return models.StepResult{Step: step, Status: models.StepSkipped, Reason: err.Error()}
	}
	return models.StepResult{Step: step, Status: models.StepOK}
}

// ImportBatch は行を順番にインポートし、作成に成功したイシューの一覧を返します
// 1行の失敗は報告のうえで次の行に進みます
func (im *Importer) ImportBatch(projectID string, rows []models.CardRow, stateMap models.StateMapping, directory *UserDirectory, sprintName string) []models.CreatedIssue {
	utils.LogInfo("インポートを開始します: %d 件", len(rows))

	var created []models.CreatedIssue
	for i, row := range rows {
		result := im.ImportRow(projectID, row, stateMap, directory, sprintName)
		if result.Err != nil {
			utils.LogError("[%d/%d] 失敗: %s (%v)", i+1, len(rows), row.CardName, result.Err)
			continue
		}

		skipped := 0
		for _, step := range result.Steps {
			if step.Status == models.StepSkipped {
				skipped++
			}
		}
		if skipped > 0 {
			utils.LogInfo("[%d/%d] 作成: %s → %s（%d ステップをスキップ）", i+1, len(rows), row.CardName, result.Issue.ID, skipped)
		} else {
			utils.LogInfo("[%d/%d] 作成: %s → %s", i+1, len(rows), row.CardName, result.Issue.ID)
		}
		created = append(created, *result.Issue)
	}

	utils.LogInfo("インポート完了: %d/%d 件", len(created), len(rows))
	return created
}

// splitTrimmed はカンマ区切り文字列を空要素を除いて分割します
func splitTrimmed(s string) []string {
	var parts []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
