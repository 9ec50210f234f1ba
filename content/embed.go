// Package content 內嵌預設的遊戲內容表（圖標、連線倍率、風險、升級門檻、道具）。
package content

import (
	"embed"
)

// FS provides embedded default content YAMLs for external usage.
//
//go:embed *.yaml
var FS embed.FS

const (
	GameFile  = "slot666.yaml"
	ItemsFile = "items.yaml"
)
