package dashboard

import (
	"sync"
	"time"
)

// Debouncer 合并短时间内的多次变更，只执行最后一次
//
// 每次 Schedule 都会取消尚未执行的任务并重新计时；Flush 立即同步执行待办任务。
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending func()
	seq     uint64
	stopped bool
	// active 计时器触发后仍在执行的任务数，归零时通过 idle 广播
	active int
	idle   *sync.Cond
}

// NewDebouncer 创建防抖器
func NewDebouncer(delay time.Duration) *Debouncer {
	d := &Debouncer{delay: delay}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Schedule 安排任务，取代任何尚未执行的任务
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.cancelLocked()
	d.pending = fn
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush 立即执行待办任务，返回是否有任务被执行
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.cancelLocked()
	if fn == nil {
		// 计时器已触发的任务可能仍在执行
		for d.active > 0 {
			d.idle.Wait()
		}
		d.mu.Unlock()
		return false
	}
	d.mu.Unlock()

	fn()
	return true
}

// Pending 是否有待执行任务
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Cancel 丢弃待办任务
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop 丢弃待办任务并拒绝后续调度
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.seq++
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.seq++
	d.active++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.active--
		if d.active == 0 {
			d.idle.Broadcast()
		}
		d.mu.Unlock()
	}()
	fn()
}
