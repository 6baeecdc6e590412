package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"trellotoyoutrack/api"
	"trellotoyoutrack/config"
	"trellotoyoutrack/services"
	"trellotoyoutrack/utils"
)

func main() {
	// コマンドラインフラグの定義
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	// 開始時間の記録
	startTime := time.Now()

	utils.LogInfo("Trello → YouTrack 移行ツール")

	// 設定の読み込みと検証（認証情報の不足は書き込み前に中断）
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		utils.LogError("設定エラー: %v", err)
		os.Exit(1)
	}

	// クライアントとサービスの初期化
	trello := api.NewTrelloClient(cfg)
	youtrack := api.NewYouTrackClient(cfg)
	resolver := services.NewIdentityResolver(services.LoadIdentityMapping(cfg.UserMappingFile))
	migration := services.NewMigrationService(cfg, trello, youtrack, resolver)

	reader := bufio.NewReader(os.Stdin)

	// YouTrackプロジェクトの選択
	projects, err := youtrack.GetProjects()
	if err != nil {
		utils.LogError("YouTrackプロジェクトの取得に失敗しました: %v", err)
		os.Exit(1)
	}
	if len(projects) == 0 {
		utils.LogError("YouTrackプロジェクトが見つかりません")
		os.Exit(1)
	}

	fmt.Println("\nYouTrackプロジェクト:")
	for i, project := range projects {
		fmt.Printf("  %d. %s\n", i+1, project.Name)
	}
	projectIdx := promptChoice(reader, "プロジェクトを選択", len(projects))
	projectID := projects[projectIdx].ID

	// YouTrackアジャイルボードの選択
	boards, err := youtrack.GetAgileBoards(projectID)
	if err != nil {
		utils.LogError("YouTrackボードの取得に失敗しました: %v", err)
		os.Exit(1)
	}
	if len(boards) == 0 {
		utils.LogError("YouTrackアジャイルボードが見つかりません")
		os.Exit(1)
	}

	fmt.Println("\nYouTrackアジャイルボード:")
	for i, board := range boards {
		fmt.Printf("  %d. %s\n", i+1, board.Name)
	}
	boardIdx := promptChoice(reader, "ボードを選択", len(boards))
	ytBoardID := boards[boardIdx].ID

	// スプリント指定（任意）
	sprintInput := promptLine(reader, "\nスプリント番号を入力（例: 6, 7）、スキップする場合は空のままEnter: ")
	sprintName := ""
	if sprintInput != "" {
		sprintName = fmt.Sprintf("Sprint %s", sprintInput)
	}

	// 移行モードの選択
	fmt.Println("\n移行方法を選択してください:")
	fmt.Println("  1. カード指定（URLまたはID）")
	fmt.Println("  2. リスト丸ごと")
	mode := promptChoice(reader, "選択", 2)

	if mode == 0 {
		runCardMode(reader, cfg, youtrack, migration, ytBoardID, projectID, sprintName)
	} else {
		runListMode(reader, cfg, youtrack, migration, ytBoardID, projectID, sprintName)
	}

	elapsed := time.Since(startTime)
	utils.LogInfo("移行処理が完了しました。合計実行時間: %s", elapsed)
}

// runCardMode は明示指定されたカード群を移行します
func runCardMode(reader *bufio.Reader, cfg *config.Config, youtrack *api.YouTrackClient, migration *services.MigrationService, ytBoardID, projectID, sprintName string) {
	input := promptLine(reader, "\nカードのURLまたはIDをカンマ区切りで入力: ")

	var cardIDs []string
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			cardIDs = append(cardIDs, part)
		}
	}
	if len(cardIDs) == 0 {
		utils.LogError("カードIDが指定されていません")
		os.Exit(1)
	}

	extractedIDs := make([]string, 0, len(cardIDs))
	for _, cid := range cardIDs {
		extractedIDs = append(extractedIDs, services.ExtractCardIDFromURL(cid))
	}

	targetState := pickTargetState(reader, youtrack, ytBoardID, "")
	if targetState == "" {
		utils.LogError("ステートが選択されていません")
		os.Exit(1)
	}

	fmt.Printf("\nカード: %s\n", strings.Join(extractedIDs, ", "))
	if !confirm(reader, fmt.Sprintf("%d 件のカードを '%s' にインポートしますか？ (y/n): ", len(extractedIDs), targetState)) {
		utils.LogInfo("キャンセルしました")
		return
	}

	if _, err := migration.ImportCards(cfg.TrelloBoardID, extractedIDs, targetState, projectID, sprintName); err != nil {
		utils.LogError("移行エラー: %v", err)
		os.Exit(1)
	}
}

// runListMode はTrelloリスト1つを丸ごと移行します
func runListMode(reader *bufio.Reader, cfg *config.Config, youtrack *api.YouTrackClient, migration *services.MigrationService, ytBoardID, projectID, sprintName string) {
	listsWithCards, _, err := migration.Exporter().ListsWithCards(cfg.TrelloBoardID)
	if err != nil {
		utils.LogError("Trelloボードの取得に失敗しました: %v", err)
		os.Exit(1)
	}
	if len(listsWithCards) == 0 {
		utils.LogError("カードのあるTrelloリストが見つかりません")
		os.Exit(1)
	}

	listNames := make([]string, 0, len(listsWithCards))
	for name := range listsWithCards {
		listNames = append(listNames, name)
	}
	sort.Strings(listNames)

	fmt.Println("\nTrelloリスト:")
	for i, name := range listNames {
		fmt.Printf("  %d. %s (%d 枚)\n", i+1, name, len(listsWithCards[name]))
	}
	listIdx := promptChoice(reader, "リストを選択", len(listNames))
	selectedList := listNames[listIdx]

	targetState := pickTargetState(reader, youtrack, ytBoardID, selectedList)
	if targetState == "" {
		utils.LogError("ステートが選択されていません")
		os.Exit(1)
	}

	fmt.Printf("\n'%s' (%d 枚) → '%s'\n", selectedList, len(listsWithCards[selectedList]), targetState)
	if !confirm(reader, "インポートしますか？ (y/n): ") {
		utils.LogInfo("キャンセルしました")
		return
	}

	if _, err := migration.ImportList(cfg.TrelloBoardID, selectedList, targetState, projectID, sprintName); err != nil {
		utils.LogError("移行エラー: %v", err)
		os.Exit(1)
	}
}

// pickTargetState はYouTrackボードの列からターゲットステートを選択させます
func pickTargetState(reader *bufio.Reader, youtrack *api.YouTrackClient, boardID, suggestedName string) string {
	states, err := youtrack.GetBoardStates(boardID)
	if err != nil || len(states) == 0 {
		return ""
	}

	if suggestedName != "" {
		fmt.Printf("\n'%s' のターゲット列:\n", suggestedName)
	} else {
		fmt.Println("\nYouTrackの列:")
	}

	columns := make([]string, 0, len(states))
	for column := range states {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for i, column := range columns {
		fmt.Printf("  %d. %s (State: %s)\n", i+1, column, states[column])
	}

	idx := promptChoice(reader, fmt.Sprintf("列を選択 (1-%d)", len(columns)), len(columns))
	return states[columns[idx]]
}

// promptChoice は1〜nの番号入力を受け付け、0始まりのインデックスを返します
func promptChoice(reader *bufio.Reader, label string, n int) int {
	for {
		input := promptLine(reader, fmt.Sprintf("\n%s: ", label))
		i, err := strconv.Atoi(input)
		if err == nil && i >= 1 && i <= n {
			return i - 1
		}
	}
}

// promptLine は1行の入力を読み取りトリムして返します
func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// confirm はy/n確認を行います
func confirm(reader *bufio.Reader, prompt string) bool {
	answer := strings.ToLower(promptLine(reader, prompt))
	return answer == "y" || answer == "yes"
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Trello → YouTrack 移行ツール

使用方法:
  %s [オプション]

オプション:
  -help               このヘルプを表示する

環境変数:
  TRELLO_API_KEY          Trello APIキー (必須)
  TRELLO_API_TOKEN        Trello APIトークン (必須)
  TRELLO_BOARD_ID         移行元TrelloボードID (必須)
  YOUTRACK_URL            YouTrack URL (必須)
  YOUTRACK_API_TOKEN      YouTrack APIトークン (必須)
  USER_MAPPING_FILE       ユーザーマッピングファイル (デフォルト: user_mapping.json)
  DEFAULT_ASSIGNEE_EMAIL  担当者が解決できない場合のデフォルト担当者メール (任意)

説明:
  対話形式でYouTrackのプロジェクト・ボード・ターゲットステートを選択し、
  Trelloのカード（URL/ID指定またはリスト丸ごと）をYouTrackイシューとして
  インポートします。書き込み前に必ず確認を求めます。
`, os.Args[0])
}
