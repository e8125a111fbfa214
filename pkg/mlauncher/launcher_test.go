package mlauncher

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cgcardona/maestro/pkg/mlog"
)

type fakeApp struct {
	ran  *int32
	err  error
	wait *sync.WaitGroup
}

func (a fakeApp) Run(l *Launcher) error {
	atomic.AddInt32(a.ran, 1)

	if a.wait != nil {
		a.wait.Wait()
	}

	return a.err
}

func TestLauncherRunsAllRegisteredApps(t *testing.T) {
	var n1, n2 int32

	l := NewLauncher(
		WithLogger(&mlog.NoneLogger{}),
		RunApp("one", fakeApp{ran: &n1}),
		RunApp("two", fakeApp{ran: &n2}),
	)

	l.Run()

	assert.EqualValues(t, 1, atomic.LoadInt32(&n1))
	assert.EqualValues(t, 1, atomic.LoadInt32(&n2))
}

func TestLauncherRunDoesNotPanicWhenAnAppFails(t *testing.T) {
	var ran int32

	l := NewLauncher(
		WithLogger(&mlog.NoneLogger{}),
		RunApp("failing", fakeApp{ran: &ran, err: errors.New("boom")}),
	)

	assert.NotPanics(t, func() { l.Run() })
}

func TestAddOverwritesExistingName(t *testing.T) {
	var n1, n2 int32

	l := NewLauncher(WithLogger(&mlog.NoneLogger{}))
	l.Add("app", fakeApp{ran: &n1})
	l.Add("app", fakeApp{ran: &n2})

	l.Run()

	assert.EqualValues(t, 0, atomic.LoadInt32(&n1))
	assert.EqualValues(t, 1, atomic.LoadInt32(&n2))
}
