package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/models"
	"trellotoyoutrack/services"
	"trellotoyoutrack/utils"
)

func main() {
	// コマンドラインフラグの定義
	listName := flag.String("list", "", "エクスポートするTrelloリスト名")
	cardIDs := flag.String("cards", "", "エクスポートするカードのURLまたはID（カンマ区切り）")
	output := flag.String("output", "trello_export.csv", "出力CSVファイルのパス")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	if *listName == "" && *cardIDs == "" {
		utils.LogError("-list または -cards のいずれかを指定してください")
		os.Exit(1)
	}

	// 開始時間の記録
	startTime := time.Now()
	defer utils.TrackTime(startTime, "エクスポート")

	utils.LogInfo("Trello CSVエクスポートツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}
	if cfg.TrelloAPIKey == "" || cfg.TrelloAPIToken == "" || cfg.TrelloBoardID == "" {
		utils.LogError("Trelloの環境変数が不足しています")
		os.Exit(1)
	}

	trello := api.NewTrelloClient(cfg)
	resolver := services.NewIdentityResolver(services.LoadIdentityMapping(cfg.UserMappingFile))
	exporter := services.NewExporter(trello, resolver)

	var cards []api.TrelloCard
	sourceLabel := *listName

	if *cardIDs != "" {
		var ids []string
		for _, part := range strings.Split(*cardIDs, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				ids = append(ids, part)
			}
		}
		var failed []string
		cards, _, failed = exporter.FetchCardsByIDs(ids)
		for _, f := range failed {
			utils.LogWarn("取得できなかったカード: %s", f)
		}
		sourceLabel = "Selected Cards"
	} else {
		cards, err = exporter.FetchCardsFromList(cfg.TrelloBoardID, *listName)
		if err != nil {
			utils.LogError("リストの取得に失敗しました: %v", err)
			os.Exit(1)
		}
	}

	if len(cards) == 0 {
		utils.LogError("エクスポートするカードが見つかりません")
		os.Exit(1)
	}

	boardName := exporter.BoardName(cfg.TrelloBoardID)

	utils.LogInfo("%d 件のカードを正規化しています...", len(cards))
	rows := make([]models.CardRow, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, exporter.BuildCardRow(card, sourceLabel, boardName))
	}

	csvProc := services.NewCSVProcessor()
	if err := csvProc.WriteRows(*output, rows); err != nil {
		utils.LogError("CSV書き込みエラー: %v", err)
		os.Exit(1)
	}

	utils.LogInfo("エクスポート完了: %s (%d 行)", *output, len(rows))
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Trello CSVエクスポートツール

使用方法:
  %s -list リスト名 [-output ファイル]
  %s -cards URLまたはID,... [-output ファイル]

オプション:
  -list リスト名       エクスポートするTrelloリスト名
  -cards ID,...       エクスポートするカードのURLまたはID（カンマ区切り）
  -output ファイル     出力CSVファイルのパス (デフォルト: trello_export.csv)
  -help               このヘルプを表示する

環境変数:
  TRELLO_API_KEY      Trello APIキー (必須)
  TRELLO_API_TOKEN    Trello APIトークン (必須)
  TRELLO_BOARD_ID     移行元TrelloボードID (必須)
  USER_MAPPING_FILE   ユーザーマッピングファイル (デフォルト: user_mapping.json)

説明:
  このツールはTrelloのカードをCSVにエクスポートするだけで、
  YouTrackへの書き込みは行いません。出力したCSVは import ツールで
  インポートできます。
`, os.Args[0], os.Args[0])
}
