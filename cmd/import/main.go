package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/services"
	"trellotoyoutrack/utils"
)

func main() {
	// コマンドラインフラグの定義
	input := flag.String("input", "", "インポートするCSVファイルのパス")
	projectID := flag.String("project", "", "インポート先YouTrackプロジェクトID")
	state := flag.String("state", "", "ターゲットワークフローステート名")
	sprint := flag.String("sprint", "", "スプリント名（任意、例: Sprint 6）")
	sourceLabel := flag.String("source", "", "ステートを適用するList列の値（省略時は全行に適用）")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	if *input == "" || *projectID == "" || *state == "" {
		utils.LogError("-input, -project, -state は必須です")
		os.Exit(1)
	}

	// 開始時間の記録
	startTime := time.Now()
	defer utils.TrackTime(startTime, "CSVインポート")

	utils.LogInfo("YouTrack CSVインポートツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}
	if cfg.YouTrackURL == "" || cfg.YouTrackAPIToken == "" {
		utils.LogError("YouTrackの環境変数が不足しています")
		os.Exit(1)
	}

	// CSVファイルの存在確認
	if _, err := os.Stat(*input); os.IsNotExist(err) {
		utils.LogError("CSVファイルが見つかりません: %s", *input)
		utils.LogError("先に export ツールを実行して、CSVを準備してください。")
		os.Exit(1)
	}

	// YouTrack認証情報の確認
	youtrack := api.NewYouTrackClient(cfg)
	utils.LogInfo("YouTrack認証情報を確認しています...")
	if err := youtrack.CheckAuth(); err != nil {
		utils.LogError("YouTrack認証エラー: %v", err)
		os.Exit(1)
	}
	utils.LogInfo("YouTrack認証成功")

	trello := api.NewTrelloClient(cfg)
	resolver := services.NewIdentityResolver(services.LoadIdentityMapping(cfg.UserMappingFile))
	migration := services.NewMigrationService(cfg, trello, youtrack, resolver)

	// 操作者が指定したCSVは削除しない
	created, err := migration.ImportFromCSV(*input, *state, *projectID, *sourceLabel, *sprint, false)
	if err != nil {
		utils.LogError("インポートエラー: %v", err)
		os.Exit(1)
	}

	utils.LogInfo("CSVインポートが完了しました: %d 件作成", len(created))
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
YouTrack CSVインポートツール

使用方法:
  %s -input ファイル -project プロジェクトID -state ステート名 [オプション]

オプション:
  -input ファイル      インポートするCSVファイル (必須)
  -project ID         インポート先YouTrackプロジェクトID (必須)
  -state ステート名    ターゲットワークフローステート名 (必須)
  -sprint 名前        スプリント名（任意、例: "Sprint 6"）
  -source ラベル      ステートを適用するList列の値（省略時は全行に適用）
  -help               このヘルプを表示する

環境変数:
  YOUTRACK_URL            YouTrack URL (必須)
  YOUTRACK_API_TOKEN      YouTrack APIトークン (必須)
  USER_MAPPING_FILE       ユーザーマッピングファイル (デフォルト: user_mapping.json)
  DEFAULT_ASSIGNEE_EMAIL  担当者が解決できない場合のデフォルト担当者メール (任意)

説明:
  このツールは export ツールで出力したCSVファイルからYouTrackイシューを
  作成します。操作者が指定したCSVファイルは処理後も削除されません。
`, os.Args[0])
}
