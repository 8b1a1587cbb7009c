// fixman は修理受付管理APIサーバーのエントリーポイント。
//
// サブコマンド:
//
//	serve       APIサーバーを起動する（デフォルト）
//	worker      期限切れトークンの掃除ワーカーを起動する
//	migrate     データベースマイグレーションを実行する
//	healthcheck ヘルスチェックを実行する（Docker用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/fixman/internal/app"
)

func main() {
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fixman: %v\n", err)
		os.Exit(1)
	}
}
