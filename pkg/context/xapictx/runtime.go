package xapictx

import "strings"

// RuntimeContext 正在执行的 API 操作的路由快照。
//
// 路由形如 /{realm}/{version}/{resource}/{parameter1}/{parameter2}。
// IsActionUsed 为 true 时 Parameter1 是动作名、Parameter2 是实体 key，否则 Parameter1 是实体 key。
type RuntimeContext struct {
	ApiServiceName string
	ResourceName   string
	Realm          string
	Version        string
	Parameter1     string
	Parameter2     string
	IsActionUsed   bool

	// Err 操作执行期间捕获的错误
	Err error
}

// EntityKey 路由中的实体 key
func (rc RuntimeContext) EntityKey() string {
	if rc.IsActionUsed {
		return rc.Parameter2
	}
	return rc.Parameter1
}

// ActionName 路由中的动作名，未使用动作时为空
func (rc RuntimeContext) ActionName() string {
	if rc.IsActionUsed {
		return rc.Parameter1
	}
	return ""
}

// Label 追踪步骤名称：非空的 realm、服务名、资源名、动作名以 "." 连接。
func (rc RuntimeContext) Label() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{rc.Realm, rc.ApiServiceName, rc.ResourceName, rc.ActionName()} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}
