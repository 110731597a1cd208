package progress

import "sync"

// 事件类型
const (
	KindProgress = "progress"
	KindResult   = "result"
	KindError    = "error"
)

// 进度阶段
const (
	StatusConnecting  = "connecting"
	StatusThinking    = "thinking"
	StatusExecuting   = "executing"
	StatusSummarizing = "summarizing"
)

// Event 编排过程中产生的一条事件
// KindProgress 事件携带 Status/Detail，KindResult 携带 Payload，KindError 携带 Err
type Event struct {
	Kind    string
	Status  string
	Detail  string
	Payload any
	Err     string
}

// Reporter 编排循环上报进度的出口
type Reporter interface {
	Report(status, detail string)
}

type discardReporter struct{}

func (discardReporter) Report(string, string) {}

// Discard 返回丢弃所有进度的 Reporter，供非流式入口使用
func Discard() Reporter {
	return discardReporter{}
}

// 缓冲容量高于封顶轮数下的最大事件数（2N+3），订阅方慢时也不丢事件
const relayCapacity = 64

// Relay 单请求的进度中继，单生产者单消费者
// 进度上报非阻塞，缓冲溢出时丢弃；终止事件保证送达后关闭通道
// Report 与 Finish/Fail 必须由同一生产者先后调用
type Relay struct {
	ch   chan Event
	once sync.Once
}

// NewRelay 创建进度中继
func NewRelay() *Relay {
	return &Relay{ch: make(chan Event, relayCapacity)}
}

// Report 上报一条进度事件，缓冲满时丢弃，绝不阻塞编排循环
func (r *Relay) Report(status, detail string) {
	select {
	case r.ch <- Event{Kind: KindProgress, Status: status, Detail: detail}:
	default:
	}
}

// Finish 投递结果事件并关闭通道，只生效一次
func (r *Relay) Finish(payload any) {
	r.terminate(Event{Kind: KindResult, Payload: payload})
}

// Fail 投递错误事件并关闭通道，只生效一次
func (r *Relay) Fail(err error) {
	r.terminate(Event{Kind: KindError, Err: err.Error()})
}

func (r *Relay) terminate(ev Event) {
	r.once.Do(func() {
		for {
			select {
			case r.ch <- ev:
				close(r.ch)
				return
			default:
			}
			// 缓冲满时挤掉最旧的进度事件，终止事件必须送达且不阻塞生产者
			select {
			case <-r.ch:
			default:
			}
		}
	})
}

// Events 返回事件接收端，通道关闭即编排结束
func (r *Relay) Events() <-chan Event {
	return r.ch
}
