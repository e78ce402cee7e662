package settings

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/libresonic/playersettings/internal/flash"
	"github.com/libresonic/playersettings/internal/player"
	"github.com/libresonic/playersettings/internal/transcoding"
	"github.com/libresonic/playersettings/internal/user"
)

// callLog records collaborator calls in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) count(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (l *callLog) index(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Index(l.calls, call)
}

type fakePlayers struct {
	log          *callLog
	players      map[int64]*player.Player
	transcodings *fakeTranscodings
	nextID       int64
	failOn       string
}

func newFakePlayers(log *callLog, players ...player.Player) *fakePlayers {
	f := &fakePlayers{log: log, players: map[int64]*player.Player{}, nextID: 100}
	for _, p := range players {
		p := p
		f.players[p.ID] = &p
	}
	return f
}

func (f *fakePlayers) fail(op string) error {
	if f.failOn == op {
		return fmt.Errorf("%s: connection refused", op)
	}
	return nil
}

func (f *fakePlayers) GetByID(_ context.Context, id int64) (*player.Player, error) {
	f.log.add("GetByID:%d", id)
	if err := f.fail("GetByID"); err != nil {
		return nil, err
	}
	p, ok := f.players[id]
	if !ok {
		return nil, player.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlayers) List(context.Context) ([]player.Player, error) {
	f.log.add("List")
	if err := f.fail("List"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(f.players))
	for id := range f.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]player.Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.players[id])
	}
	return out, nil
}

func (f *fakePlayers) Remove(_ context.Context, id int64) error {
	f.log.add("Remove:%d", id)
	if _, ok := f.players[id]; !ok {
		return player.ErrNotFound
	}
	delete(f.players, id)
	return nil
}

func (f *fakePlayers) Clone(_ context.Context, id int64) (int64, error) {
	f.log.add("Clone:%d", id)
	src, ok := f.players[id]
	if !ok {
		return 0, player.ErrNotFound
	}
	f.nextID++
	cp := *src
	cp.ID = f.nextID
	cp.Name = src.Name + " (copy)"
	f.players[cp.ID] = &cp
	return cp.ID, nil
}

// Update stores the player and its transcodings together, or neither.
func (f *fakePlayers) Update(_ context.Context, p *player.Player, transcodingIDs []int) error {
	f.log.add("Update:%d", p.ID)
	if err := f.fail("Update"); err != nil {
		return err
	}
	if _, ok := f.players[p.ID]; !ok {
		return player.ErrNotFound
	}
	if f.transcodings != nil {
		for _, id := range transcodingIDs {
			if !slices.ContainsFunc(f.transcodings.all, func(t transcoding.Transcoding) bool { return t.ID == id }) {
				return fmt.Errorf("update player %d: %w", p.ID, transcoding.ErrUnknownTranscoding)
			}
		}
		f.transcodings.active[p.ID] = slices.Clone(transcodingIDs)
	}
	cp := *p
	f.players[p.ID] = &cp
	return nil
}

func (f *fakePlayers) Register(_ context.Context, reg player.Registration) (*player.Player, bool, error) {
	f.log.add("Register:%s", reg.Username)
	for _, p := range f.players {
		if reg.ClientID != "" && p.ClientID == reg.ClientID && p.Username == reg.Username {
			cp := *p
			return &cp, false, nil
		}
	}
	f.nextID++
	p := &player.Player{
		ID:              f.nextID,
		Username:        reg.Username,
		ClientID:        reg.ClientID,
		IPAddress:       reg.IPAddress,
		Type:            reg.ClientType(),
		DynamicIP:       true,
		TranscodeScheme: player.TranscodeOff,
		Technology:      player.TechnologyWeb,
	}
	f.players[p.ID] = p
	cp := *p
	return &cp, true, nil
}

func (f *fakePlayers) Describe(p player.Player) string {
	return p.Description()
}

type fakeSecurity struct {
	user *user.User
}

func (f fakeSecurity) CurrentUser(*http.Request) (*user.User, error) {
	if f.user == nil {
		return nil, user.ErrNotAuthenticated
	}
	return f.user, nil
}

type fakeTranscodings struct {
	log    *callLog
	all    []transcoding.Transcoding
	active map[int64][]int
}

func newFakeTranscodings(log *callLog) *fakeTranscodings {
	return &fakeTranscodings{
		log: log,
		all: []transcoding.Transcoding{
			{ID: 1, Name: "mp3 audio", SourceFormats: "ogg flac", TargetFormat: "mp3", DefaultActive: true},
			{ID: 2, Name: "flv/h264 video", SourceFormats: "avi mpg", TargetFormat: "flv", DefaultActive: true},
			{ID: 3, Name: "mp4/h264 video", SourceFormats: "avi mpg", TargetFormat: "mp4"},
		},
		active: map[int64][]int{},
	}
}

func (f *fakeTranscodings) All(context.Context) ([]transcoding.Transcoding, error) {
	f.log.add("All")
	return f.all, nil
}

func (f *fakeTranscodings) ForPlayer(_ context.Context, playerID int64) ([]transcoding.Transcoding, error) {
	f.log.add("ForPlayer:%d", playerID)
	var out []transcoding.Transcoding
	for _, t := range f.all {
		if slices.Contains(f.active[playerID], t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTranscodings) IsDownsamplingSupported() bool { return true }

func (f *fakeTranscodings) TranscodeDirectory() (string, error) { return "/var/transcode", nil }

type recordingPublisher struct {
	log *callLog
}

func (p recordingPublisher) PlayerUpdated(_ context.Context, id int64) {
	p.log.add("event:updated:%d", id)
}

func (p recordingPublisher) PlayerRemoved(_ context.Context, id int64) {
	p.log.add("event:removed:%d", id)
}

func (p recordingPublisher) PlayerCloned(_ context.Context, sourceID, cloneID int64) {
	p.log.add("event:cloned:%d:%d", sourceID, cloneID)
}

type fakeFlashes struct {
	added []string
	flags flash.Flags
}

func (f *fakeFlashes) Add(_ http.ResponseWriter, _ *http.Request, keys ...string) error {
	f.added = append(f.added, keys...)
	return nil
}

func (f *fakeFlashes) Pop(http.ResponseWriter, *http.Request) flash.Flags {
	flags := f.flags
	f.flags = flash.Flags{}
	return flags
}

var (
	admin = &user.User{ID: "u-admin", Username: "admin", AdminRole: true}
	alice = &user.User{ID: "u-alice", Username: "alice"}
	bob   = &user.User{ID: "u-bob", Username: "bob"}
)

func seedPlayers() []player.Player {
	return []player.Player{
		{ID: 1, Name: "Kitchen", Username: "alice", IPAddress: "10.0.0.5", Type: "Firefox 128 (Linux)",
			DynamicIP: true, AutoControlEnabled: true, TranscodeScheme: player.TranscodeMax128, Technology: player.TechnologyWeb},
		{ID: 2, Name: "Car", Username: "bob", IPAddress: "10.0.0.6",
			TranscodeScheme: player.TranscodeOff, Technology: player.TechnologyExternal},
		{ID: 3, Username: "alice", IPAddress: "10.0.0.7",
			TranscodeScheme: player.TranscodeOff, Technology: player.TechnologyWeb},
	}
}

type fixture struct {
	log          *callLog
	players      *fakePlayers
	transcodings *fakeTranscodings
	flashes      *fakeFlashes
	handler      *Handler
}

func newFixture(u *user.User) *fixture {
	log := &callLog{}
	f := &fixture{
		log:          log,
		players:      newFakePlayers(log, seedPlayers()...),
		transcodings: newFakeTranscodings(log),
		flashes:      &fakeFlashes{flags: flash.Flags{}},
	}
	f.players.transcodings = f.transcodings
	f.transcodings.active[1] = []int{1, 2}
	f.handler = NewHandler(f.players, fakeSecurity{user: u}, f.transcodings)
	f.handler.SetFlashStore(f.flashes)
	f.handler.SetPublisher(recordingPublisher{log: log})
	return f
}
