package app

// Command はプロセスの役割を表すサブコマンド。
// 1バイナリをAPIサーバー・ニュースワーカー・マイグレーションの
// いずれかとして起動し分ける。
type Command string

const (
	// CommandServe はマーケットプレイスAPIサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker はニュース取得・セッション掃除のバッチワーカーを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーママイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーに疎通確認して終了する。
	// distrolessイメージにはシェルもcurlもないため自前で持つ。
	CommandHealthcheck Command = "healthcheck"
)

var knownCommands = map[string]Command{
	"serve":       CommandServe,
	"worker":      CommandWorker,
	"migrate":     CommandMigrate,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand は先頭引数をサブコマンドとして解釈する。
// 引数なし・未知のコマンドはserve扱いとし、後続の引数は無視する。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := knownCommands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
