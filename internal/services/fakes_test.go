package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/go-vin-sticker-bot/internal/cache"
	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/quota"
	"github.com/tbourn/go-vin-sticker-bot/internal/sticker"
)

// ----- Fake outbound -----

type sentText struct {
	To   ReplyTarget
	Text string
}

type fakeOut struct {
	mu sync.Mutex

	nextMsgID int

	texts    []sentText
	docs     []Document
	copies   []domain.Handle
	sends    map[int64][]string
	photos   map[int64][]Photo
	answers  []string
	probed   []domain.Handle
	probeErr error

	replyErr error
	docErr   error
	copyErr  error
}

func newFakeOut() *fakeOut {
	return &fakeOut{nextMsgID: 500, sends: map[int64][]string{}, photos: map[int64][]Photo{}}
}

func (f *fakeOut) handle(to ReplyTarget) domain.Handle {
	f.nextMsgID++
	return domain.Handle{ChatID: to.ChatID, MessageID: f.nextMsgID, ChatUsername: to.ChatUsername}
}

func (f *fakeOut) ReplyText(_ context.Context, to ReplyTarget, text string) (domain.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return domain.Handle{}, f.replyErr
	}
	f.texts = append(f.texts, sentText{To: to, Text: text})
	return f.handle(to), nil
}

func (f *fakeOut) ReplyDocument(_ context.Context, to ReplyTarget, doc Document) (domain.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docErr != nil {
		return domain.Handle{}, f.docErr
	}
	f.docs = append(f.docs, doc)
	return f.handle(to), nil
}

func (f *fakeOut) ReplyCopy(_ context.Context, _ ReplyTarget, h domain.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copies = append(f.copies, h)
	return nil
}

func (f *fakeOut) SendText(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends[chatID] = append(f.sends[chatID], text)
	return nil
}

func (f *fakeOut) SendPhotos(_ context.Context, chatID int64, photos []Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[chatID] = append(f.photos[chatID], photos...)
	return nil
}

func (f *fakeOut) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeOut) Probe(_ context.Context, h domain.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, h)
	return f.probeErr
}

func (f *fakeOut) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1].Text
}

// ----- Fake fetcher -----

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	res   *sticker.Result
	err   error
	// during runs inside Fetch, while the reservation is held.
	during func()
	// block makes Fetch wait for ctx to end and return its error.
	block bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, vin string) (*sticker.Result, error) {
	f.mu.Lock()
	f.calls++
	during, block := f.during, f.block
	f.mu.Unlock()
	if during != nil {
		during()
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		r := *f.res
		r.VIN = vin
		return &r, nil
	}
	return &sticker.Result{VIN: vin, PDF: []byte("%PDF")}, nil
}

// ----- In-memory cache backend -----

type memBackend struct {
	mu   sync.Mutex
	recs map[string]domain.ResultRecord
	err  error
}

func newMemBackend() *memBackend { return &memBackend{recs: map[string]domain.ResultRecord{}} }

func (b *memBackend) Get(_ context.Context, vin string) (*domain.ResultRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	r, ok := b.recs[vin]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &r, nil
}

func (b *memBackend) Put(_ context.Context, rec *domain.ResultRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.recs[rec.VIN] = *rec
	return nil
}

func (b *memBackend) Delete(_ context.Context, vin string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	delete(b.recs, vin)
	return nil
}

var errBoom = errors.New("boom")

// ----- Fixture -----

type fixture struct {
	now     time.Time
	ledger  *quota.Ledger
	backend *memBackend
	cache   *cache.ResultCache
	fetcher *fakeFetcher
	out     *fakeOut
	svc     *LookupService
}

func newFixture(limit int) *fixture {
	f := &fixture{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.ledger = quota.NewLedger(limit, quota.WithClock(clock))
	f.backend = newMemBackend()
	f.cache = cache.New(f.backend)
	f.fetcher = &fakeFetcher{}
	f.out = newFakeOut()
	f.svc = NewLookupService(f.ledger, f.cache, f.fetcher, f.out)
	f.svc.now = clock
	return f
}

const (
	vinA   = "ZARFT12345678901X"
	userA  = int64(77)
	groupA = int64(-100500)
)

func groupMsg(text string) Inbound {
	return Inbound{
		UpdateID:     1,
		ChatID:       groupA,
		ChatType:     "supergroup",
		ChatUsername: "giulia_club",
		MessageID:    10,
		UserID:       userA,
		Text:         text,
	}
}
