package xsettings

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// ChangeFunc 配置文件变更后的回调。
// 重新加载失败时 s 为 nil，Watcher.Current 保持上一次成功的配置。
type ChangeFunc func(s *Settings, err error)

// WatchOption 监视选项
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间，默认 100ms
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 监视配置文件并在变更时重新加载
type Watcher struct {
	path     string
	onChange ChangeFunc
	debounce time.Duration
	fs       *fsnotify.Watcher
	current  atomic.Pointer[Settings]

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	inflight sync.WaitGroup
}

// Watch 加载 path 并开始监视其所在目录。
//
// 初次加载失败时直接返回错误。返回的 Watcher 需要调用 Stop。
//
//	w, err := xsettings.Watch(path, func(s *xsettings.Settings, err error) {
//	    if err == nil {
//	        s.Apply(nil)
//	    }
//	})
func Watch(path string, onChange ChangeFunc, opts ...WatchOption) (*Watcher, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xsettings: create watcher: %w", err)
	}
	// 编辑器常以“写临时文件再 rename”的方式保存，监视目录才能收到事件
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xsettings: watch directory %s: %w", dir, err), fsw.Close())
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		onChange: onChange,
		debounce: defaultDebounce,
		fs:       fsw,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.current.Store(s)
	go w.run()
	return w, nil
}

// Current 返回最近一次成功加载的配置
func (w *Watcher) Current() *Settings {
	return w.current.Load()
}

// Stop 停止监视并等待后台 goroutine 与进行中的重新加载退出，可重复调用。
// Stop 返回后 onChange 不会再被调用；不要在 onChange 内调用 Stop。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		if w.timer.Stop() {
			w.inflight.Done()
		}
		w.timer = nil
	}
	w.mu.Unlock()

	w.cancel()
	err := w.fs.Close()
	<-w.done
	w.inflight.Wait()
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	name := filepath.Base(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.notify(nil, fmt.Errorf("xsettings: watch error: %w", err))
		}
	}
}

// schedule 防抖：窗口内的多次事件只触发一次重新加载
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.inflight.Done()
	}
	w.inflight.Add(1)
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	defer w.inflight.Done()
	if w.ctx.Err() != nil {
		return
	}
	s, err := Load(w.path)
	if err == nil {
		w.current.Store(s)
	}
	w.notify(s, err)
}

func (w *Watcher) notify(s *Settings, err error) {
	if w.onChange != nil && w.ctx.Err() == nil {
		w.onChange(s, err)
	}
}
