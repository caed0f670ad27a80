package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/controller"
	"github.com/markusressel/fancond/internal/ui"
)

const (
	connectTimeout = 10 * time.Second

	measurementFan    = "fan"
	measurementSensor = "sensor"
)

var ErrUnhealthy = errors.New("influxdb server is not healthy")

// Writer records fan and sensor telemetry in InfluxDB
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// Connect creates a client for the configured server and verifies it is reachable
func Connect(config configuration.InfluxDbConfig) (*Writer, error) {
	client := influxdb2.NewClientWithOptions(config.Url, config.Token,
		influxdb2.DefaultOptions().SetBatchSize(100).SetFlushInterval(10_000))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to reach influxdb at %s: %w", config.Url, err)
	}
	if !healthy {
		client.Close()
		return nil, ErrUnhealthy
	}

	writer := NewWriter(client.WriteAPI(config.Org, config.Bucket))
	writer.client = client
	return writer, nil
}

// NewWriter creates a writer for the given non-blocking write api
func NewWriter(writeAPI api.WriteAPI) *Writer {
	writer := &Writer{writeAPI: writeAPI}
	go func() {
		for err := range writeAPI.Errors() {
			ui.Warning("Unable to write to influxdb: %v", err)
		}
	}()
	return writer
}

// OnStatus writes one point per updated fan and per sensor
func (w *Writer) OnStatus(snapshot controller.StatusSnapshot) {
	for _, point := range Points(snapshot) {
		w.writeAPI.WritePoint(point)
	}
}

// Points converts a snapshot into influx points. Fans that were never updated are skipped.
func Points(snapshot controller.StatusSnapshot) []*write.Point {
	var points []*write.Point
	for _, fan := range snapshot.Fans {
		if fan.Telemetry.UpdatedAt.IsZero() {
			continue
		}
		points = append(points, write.NewPoint(measurementFan,
			map[string]string{
				"label":  fan.Label,
				"sensor": fan.Sensor,
			},
			map[string]interface{}{
				"temp":         fan.Telemetry.Temp,
				"target_rpm":   fan.Telemetry.TargetRpm,
				"smoothed_rpm": fan.Telemetry.SmoothedRpm,
				"pwm":          fan.Telemetry.Pwm,
				"rpm":          fan.Telemetry.Rpm,
				"status":       fan.Status.String(),
			},
			fan.Telemetry.UpdatedAt,
		))
	}
	for _, sensor := range snapshot.Sensors {
		if sensor.Ignored {
			continue
		}
		points = append(points, write.NewPoint(measurementSensor,
			map[string]string{"label": sensor.Label},
			map[string]interface{}{
				"value":   sensor.Value,
				"average": sensor.Average,
			},
			snapshot.Timestamp,
		))
	}
	return points
}

// Close flushes pending points and closes the client
func (w *Writer) Close() {
	w.writeAPI.Flush()
	if w.client != nil {
		w.client.Close()
	}
}
