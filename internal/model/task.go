// Package model はドメインモデルを定義する。
package model

import "time"

// Task はユーザーが所有するタスクを表す。
// 所有者は作成時に決まり、付け替えはできない。
//
// IDはストア上の行を特定するためだけに使う。
// 公開APIでのタスク指定は所有者のタスク一覧内の位置（インデックス）で行うため、
// 先行するタスクが削除されるとインデックスはずれる。
type Task struct {
	ID        string
	Owner     string // 所有ユーザーのUsername
	Title     string
	Done      bool
	CreatedAt time.Time
}
