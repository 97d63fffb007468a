package app

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はクライアント状態のクリーンアップを定期実行するワーカーモードを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// Options はコマンドライン引数の解析結果。
type Options struct {
	Command Command
	EnvFile string
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// ParseArgs はフラグとサブコマンドを解析する。
// フラグはサブコマンドの前後どちらに置いてもよい。--helpの場合はpflag.ErrHelpを返す。
func ParseArgs(args []string, usage io.Writer) (Options, error) {
	fs := pflag.NewFlagSet("researchtracker", pflag.ContinueOnError)
	fs.SetOutput(usage)

	opts := Options{}
	fs.StringVar(&opts.EnvFile, "env-file", ".env", "path to a .env file loaded before reading the environment")
	fs.Usage = func() {
		fmt.Fprintln(usage, "Usage: researchtracker [serve|worker|migrate|healthcheck] [flags]")
		fmt.Fprintln(usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	opts.Command = ParseCommand(fs.Args())
	return opts, nil
}
