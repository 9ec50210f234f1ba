package netsvr

import (
	"net/http"

	"github.com/zintix-labs/slot666/server/app"
)

// NetSvr 封裝「路由行為 + 服務啟停」的抽象介面。
//   - 只暴露給最外層 main 使用，其他層只需面向 NetRouter。
//   - 若改用不同 http 框架，只要實作此介面即可；handler 一律走 net/http。
//   - NetSvr 本身實作了 app.Component，可以直接交給 app.App 管理生命週期。
//   - NetSvr 同時是 http.Handler，測試時可直接交給 httptest。
type NetSvr interface {
	NetRouter
	app.Component
	http.Handler
}

// NetRouter 定義純路由行為，讓子模組只操作路由而不持有啟停控制權。
// Group 回呼只會拿到 NetRouter，看不到 Run/Shutdown。
type NetRouter interface {
	// middleware
	Use(middleware func(http.Handler) http.Handler)

	// 註冊路由；path 可含 {param}，以 URLParam 取值
	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)

	// 群組路由
	Group(path string, fn func(NetRouter))
}
