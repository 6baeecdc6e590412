package main

import (
	"flag"
	"fmt"
	"os"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/utils"
)

func main() {
	// ヘルプフラグの定義
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	utils.LogInfo("認証確認ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		utils.LogError("設定エラー: %v", err)
		os.Exit(1)
	}

	// Trello認証チェック
	trello := api.NewTrelloClient(cfg)
	utils.LogInfo("Trello APIの認証を確認しています...")
	if err := trello.CheckAuth(); err != nil {
		utils.LogError("Trello認証エラー: %v", err)
		utils.LogError("Trelloの認証情報を確認してください。")
		os.Exit(1)
	}
	utils.LogInfo("Trello認証成功")

	// YouTrack認証チェック
	youtrack := api.NewYouTrackClient(cfg)
	utils.LogInfo("YouTrack APIの認証を確認しています...")
	if err := youtrack.CheckAuth(); err != nil {
		utils.LogError("YouTrack認証エラー: %v", err)
		utils.LogError("YouTrackの認証情報を確認してください。")
		os.Exit(1)
	}
	utils.LogInfo("YouTrack認証成功！ 接続先: %s", cfg.YouTrackURL)
	utils.LogInfo("両サービスの認証情報は正常です。")
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
認証確認ツール

使用方法:
  %s [オプション]

オプション:
  -help               このヘルプを表示する

環境変数:
  TRELLO_API_KEY      Trello APIキー (必須)
  TRELLO_API_TOKEN    Trello APIトークン (必須)
  TRELLO_BOARD_ID     移行元TrelloボードID (必須)
  YOUTRACK_URL        YouTrack URL (必須)
  YOUTRACK_API_TOKEN  YouTrack APIトークン (必須)

説明:
  このツールはTrelloとYouTrackの認証情報が正しく設定されているかを確認します。
  認証が成功すれば、他のツールも正常に動作する可能性が高いです。
`, os.Args[0])
}
