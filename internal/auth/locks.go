package auth

import "sync"

// sessionLocks はセッションIDごとのミューテックスを管理する。
// 同一セッションIDを持つ並行リクエスト（複数タブ等）によるログイン・ログアウト・
// タイムアウト遷移の競合を直列化する。異なるセッション同士は競合しない。
// 参照カウントで管理し、未使用になったエントリは即座に解放する。
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// acquire は指定セッションIDのロックを取得し、解放用の関数を返す。
func (sl *sessionLocks) acquire(id string) func() {
	sl.mu.Lock()
	l, ok := sl.locks[id]
	if !ok {
		l = &sessionLock{}
		sl.locks[id] = l
	}
	l.refs++
	sl.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		sl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(sl.locks, id)
		}
		sl.mu.Unlock()
	}
}
