package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/marinecast/core/metrics"
	inframetrics "github.com/kilianp07/marinecast/infra/metrics"
	"github.com/kilianp07/marinecast/internal/eventbus"
	"github.com/kilianp07/marinecast/internal/testutil"
)

func TestPublisherWithMosquitto(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	broker, cleanup, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer cleanup()

	received := make(chan GridPointMessage, 4)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("forecast-sub"))
	token := sub.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer sub.Disconnect(100)
	token = sub.Subscribe(DefaultTopicPrefix+"/+/points", 1, func(_ paho.Client, m paho.Message) {
		var msg GridPointMessage
		if err := json.Unmarshal(m.Payload(), &msg); err == nil {
			received <- msg
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	pub, err := NewPublisher(Config{Broker: broker, ClientID: "marinecast-test", QoS: 1})
	require.NoError(t, err)
	defer pub.Disconnect()

	bus := eventbus.NewTyped[coremetrics.GridPointEvent](4)
	done := inframetrics.StartGridPointCollector(ctx, bus, pub)
	bus.Publish(coremetrics.GridPointEvent{
		RunID:           "it-run",
		Latitude:        10,
		Longitude:       20,
		MeanProbability: map[string]float64{"feeding": 0.25},
		Time:            time.Now(),
	})

	select {
	case msg := <-received:
		assert.Equal(t, "it-run", msg.RunID)
		assert.Equal(t, 0.25, msg.MeanProbability["feeding"])
	case <-time.After(10 * time.Second):
		t.Fatal("grid point not received")
	}
	bus.Close()
	<-done
}
