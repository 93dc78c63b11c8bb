package services

// Broadcaster pushes live round events to connected clients. The crash runner
// calls it from its ticker goroutine, so implementations must not block.
type Broadcaster interface {
	CrashTick(roundID string, multiplier float64)
	CrashBust(roundID string, crashPoint float64)
	BalanceUpdate(userID int64, balance int64)
}

type NopBroadcaster struct{}

func (NopBroadcaster) CrashTick(string, float64)  {}
func (NopBroadcaster) CrashBust(string, float64)  {}
func (NopBroadcaster) BalanceUpdate(int64, int64) {}
