package xunit

import (
	"sync"
	"sync/atomic"
)

// Pool 复用 Unit 的池。
//
// Release 不清空 Unit。调度层必须在归还前调用 Unit.Clear（或 xapictx.Clear），
// 否则状态会带入下一次 Acquire。
type Pool struct {
	pool     sync.Pool
	created  atomic.Uint64
	acquired atomic.Uint64
	released atomic.Uint64
}

// PoolStats 池统计
type PoolStats struct {
	Created  uint64
	Acquired uint64
	Released uint64
}

// NewPool 创建 Pool。
func NewPool() *Pool {
	p := &Pool{}
	p.pool.New = func() any {
		p.created.Add(1)
		return New()
	}
	return p
}

// Acquire 取出一个 Unit。
func (p *Pool) Acquire() *Unit {
	u, ok := p.pool.Get().(*Unit)
	if !ok || u == nil {
		p.created.Add(1)
		u = New()
	}
	p.acquired.Add(1)
	u.reuses++
	return u
}

// Release 归还 Unit。nil 被忽略。
func (p *Pool) Release(u *Unit) {
	if u == nil {
		return
	}
	p.released.Add(1)
	p.pool.Put(u)
}

// Stats 返回池统计。
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Created:  p.created.Load(),
		Acquired: p.acquired.Load(),
		Released: p.released.Load(),
	}
}
