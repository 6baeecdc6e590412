package services

import (
	"encoding/csv"
	"fmt"
	"os"

	"trellotoyoutrack/models"
	"trellotoyoutrack/utils"
)

// csvHeaders は中間CSVファイルの列と順序を定義します
// リンクバケット列は常に含め、該当リンクがない場合は空になります
var csvHeaders = []string{
	"Board", "List", "Card ID", "Card Name", "Description",
	"Due Date", "Due Complete", "Labels", "Priority", "Story Points",
	"Members", "Member Emails", "Member Usernames", "URL", "Archived",
	"Attachments", "Checklists", "Comments",
	"GitHub PRs", "GitHub Issues", "GitHub Commits", "Google Drive Files",
}

// CSVProcessor は中間CSVファイルの読み書きを担当します
type CSVProcessor struct{}

// NewCSVProcessor は新しいCSVプロセッサーを作成します
func NewCSVProcessor() *CSVProcessor {
	return &CSVProcessor{}
}

// rowToRecord はCardRowをCSVの1行に変換します
func rowToRecord(row models.CardRow) []string {
	return []string{
		row.Board, row.List, row.CardID, row.CardName, row.Description,
		row.DueDate, yesNo(row.DueComplete), row.Labels, row.Priority, row.StoryPoints,
		row.Members, row.MemberEmails, row.MemberUsernames, row.URL, yesNo(row.Archived),
		row.Attachments, row.Checklists, row.Comments,
		row.GitHubPRs, row.GitHubIssues, row.GitHubCommits, row.GoogleDriveFiles,
	}
}

// recordToRow はCSVの1行をCardRowに変換します
func recordToRow(record []string) models.CardRow {
	return models.CardRow{
		Board:            record[0],
		List:             record[1],
		CardID:           record[2],
		CardName:         record[3],
		Description:      record[4],
		DueDate:          record[5],
		DueComplete:      record[6] == "Yes",
		Labels:           record[7],
		Priority:         record[8],
		StoryPoints:      record[9],
		Members:          record[10],
		MemberEmails:     record[11],
		MemberUsernames:  record[12],
		URL:              record[13],
		Archived:         record[14] == "Yes",
		Attachments:      record[15],
		Checklists:       record[16],
		Comments:         record[17],
		GitHubPRs:        record[18],
		GitHubIssues:     record[19],
		GitHubCommits:    record[20],
		GoogleDriveFiles: record[21],
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteRows はCardRowを中間CSVファイルに書き込みます
func (p *CSVProcessor) WriteRows(filePath string, rows []models.CardRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("書き込むデータがありません")
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("CSVファイル作成エラー: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("ヘッダー書き込みエラー: %w", err)
	}

	for _, row := range rows {
		if err := writer.Write(rowToRecord(row)); err != nil {
			return fmt.Errorf("行書き込みエラー: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV書き込み完了エラー: %w", err)
	}

	utils.LogInfo("CSV書き込み完了: %s (%d 行)", filePath, len(rows))
	return nil
}

// ReadRows は中間CSVファイルからCardRowを読み込みます
func (p *CSVProcessor) ReadRows(filePath string) ([]models.CardRow, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("CSVオープンエラー: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// フィールド数の検証は下で行単位に行う
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV読み込みエラー: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("CSVデータが不足しています")
	}

	if len(records[0]) != len(csvHeaders) {
		return nil, fmt.Errorf("CSVヘッダーが一致しません（期待: %d 列, 実際: %d 列）", len(csvHeaders), len(records[0]))
	}

	rows := make([]models.CardRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(csvHeaders) {
			utils.LogWarn("行 %d: フィールド数が不一致（スキップ）", i+2)
			continue
		}
		rows = append(rows, recordToRow(record))
	}
	return rows, nil
}

// RemoveFile は中間CSVファイルを削除します
// 削除失敗は警告のみで許容されます
func (p *CSVProcessor) RemoveFile(filePath string) {
	if err := os.Remove(filePath); err != nil {
		utils.LogWarn("中間ファイルの削除に失敗しました: %s (%v)", filePath, err)
	}
}
