// Command researchtracker は研究プロジェクト管理のWebフロントエンドを起動する。
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/researchtracker/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
