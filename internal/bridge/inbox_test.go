package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInboxBuffersWithoutConsumer(t *testing.T) {
	ib := newInbox()
	for i := 0; i < 1000; i++ {
		ib.push(json.RawMessage(`{}`))
	}
	ib.close()

	n := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ib.out:
			if !ok {
				assert.Equal(t, 1000, n)
				return
			}
			n++
		case <-timeout:
			t.Fatalf("drained %d of 1000", n)
		}
	}
}

func TestInboxPushAfterCloseIgnored(t *testing.T) {
	ib := newInbox()
	ib.close()
	ib.close()
	ib.push(json.RawMessage(`{"late":true}`))

	select {
	case _, ok := <-ib.out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("inbox not closed")
	}
}
