package tracker

// Session is the whole mutable state of the follower. It is owned by the
// loop goroutine; nothing else writes to it.
type Session struct {
	Tracked  string
	Cursor   SignatureCursor
	Position Position
	LastMint string

	seenPools map[string]struct{}
	traded    map[string]struct{}
}

// NewSession starts tracking account with an empty cursor
func NewSession(account string) *Session {
	return &Session{
		Tracked:   account,
		Cursor:    SignatureCursor{Account: account},
		seenPools: make(map[string]struct{}),
		traded:    make(map[string]struct{}),
	}
}

// SeenPool reports whether ammID was already acted on in this process
func (s *Session) SeenPool(ammID string) bool {
	_, ok := s.seenPools[ammID]
	return ok
}

// MarkPool records ammID as acted on
func (s *Session) MarkPool(ammID string) {
	s.seenPools[ammID] = struct{}{}
}

// Traded reports whether a buy was ever issued on ammID
func (s *Session) Traded(ammID string) bool {
	_, ok := s.traded[ammID]
	return ok
}

// MarkTraded records that a buy was issued on ammID
func (s *Session) MarkTraded(ammID string) {
	s.traded[ammID] = struct{}{}
}

// Retarget moves tracking to account and resets the cursor to watermark
func (s *Session) Retarget(account, watermark string) {
	s.Tracked = account
	s.Cursor = SignatureCursor{Account: account, LastSeen: watermark}
}

// ResetPosition clears the position back to None
func (s *Session) ResetPosition() {
	s.Position = Position{}
}
