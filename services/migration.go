package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/models"
	"trellotoyoutrack/utils"
)

// MigrationService はTrelloからYouTrackへのカード移行を処理します
// パイプラインは直線的です: エクスポート → 中間CSV → インポート
type MigrationService struct {
	config   *config.Config
	youtrack *api.YouTrackClient
	exporter *Exporter
	importer *Importer
	csvProc  *CSVProcessor
}

// NewMigrationService は新しい移行サービスを作成します
func NewMigrationService(cfg *config.Config, trello *api.TrelloClient, youtrack *api.YouTrackClient, resolver *IdentityResolver) *MigrationService {
	return &MigrationService{
		config:   cfg,
		youtrack: youtrack,
		exporter: NewExporter(trello, resolver),
		importer: NewImporter(youtrack, resolver, cfg),
		csvProc:  NewCSVProcessor(),
	}
}

// Exporter はエクスポーターを返します
func (m *MigrationService) Exporter() *Exporter {
	return m.exporter
}

// PrepareCards はカードをCardRowに正規化し中間CSVファイルに書き出します
// 戻り値は作成したCSVファイルのパスです
func (m *MigrationService) PrepareCards(cards []api.TrelloCard, listName, boardName string) (string, error) {
	rows := make([]models.CardRow, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, m.exporter.BuildCardRow(card, listName, boardName))
	}

	tempCSV := fmt.Sprintf("temp_migration_%s.csv", uuid.NewString())
	if err := m.csvProc.WriteRows(tempCSV, rows); err != nil {
		return "", err
	}
	return tempCSV, nil
}

// ImportFromCSV は中間CSVファイルの行をYouTrackにインポートします
// ターゲットステートはバッチにつき1つです
// sourceLabelが空の場合は全行のリストをターゲットステートにマッピングします
// removeAfterがtrueの場合、完了後にCSVファイルを削除します（削除失敗は許容）
func (m *MigrationService) ImportFromCSV(csvPath, targetState, projectID, sourceLabel, sprintName string, removeAfter bool) ([]models.CreatedIssue, error) {
	rows, err := m.csvProc.ReadRows(csvPath)
	if err != nil {
		return nil, err
	}

	stateMap := models.StateMapping{}
	if sourceLabel != "" {
		stateMap[sourceLabel] = targetState
	} else {
		for _, row := range rows {
			stateMap[row.List] = targetState
		}
	}

	// ユーザーディレクトリは実行ごとに一度だけ取得する
	// 取得失敗は担当者割り当てなしで継続する
	users, err := m.youtrack.GetUsers()
	if err != nil {
		utils.LogWarn("ユーザーディレクトリの取得に失敗しました: %v", err)
		users = nil
	}
	directory := NewUserDirectory(users)

	created := m.importer.ImportBatch(projectID, rows, stateMap, directory, sprintName)

	if removeAfter {
		m.csvProc.RemoveFile(csvPath)
	}
	return created, nil
}

// ImportCards は明示指定されたカード群を移行します
func (m *MigrationService) ImportCards(boardID string, cardIDsOrURLs []string, targetState, projectID, sprintName string) ([]models.CreatedIssue, error) {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "カード移行")

	utils.LogInfo("%d 件のカードを取得しています...", len(cardIDsOrURLs))
	cards, extractedIDs, failed := m.exporter.FetchCardsByIDs(cardIDsOrURLs)

	for _, f := range failed {
		utils.LogWarn("取得できなかったカード: %s", f)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("有効なカードが見つかりません")
	}
	utils.LogInfo("%d 件のカードを取得しました: %s", len(cards), strings.Join(extractedIDs, ", "))

	boardName := m.exporter.BoardName(boardID)

	const sourceLabel = "Selected Cards"
	tempCSV, err := m.PrepareCards(cards, sourceLabel, boardName)
	if err != nil {
		return nil, err
	}
	return m.ImportFromCSV(tempCSV, targetState, projectID, sourceLabel, sprintName, true)
}

// ImportList はTrelloリスト1つを丸ごと移行します
func (m *MigrationService) ImportList(boardID, listName, targetState, projectID, sprintName string) ([]models.CreatedIssue, error) {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "リスト移行")

	cards, err := m.exporter.FetchCardsFromList(boardID, listName)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("Trelloリスト '%s' にカードが見つかりません", listName)
	}

	boardName := m.exporter.BoardName(boardID)

	tempCSV, err := m.PrepareCards(cards, listName, boardName)
	if err != nil {
		return nil, err
	}
	return m.ImportFromCSV(tempCSV, targetState, projectID, listName, sprintName, true)
}
