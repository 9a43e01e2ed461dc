// Command status_logger copies every actuatord status update into
// InfluxDB.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	log "github.com/sirupsen/logrus"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger := log.WithField("system", "status_logger")

	server := getenv("INFLUX_SERVER", "http://localhost:9999")
	client := influxdb2.NewClient(server, os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	// Get non-blocking write client
	writeApi := client.WriteApi(getenv("INFLUX_ORG", "w1xm"), getenv("INFLUX_BUCKET", "climber.raw"))
	defer writeApi.Close()
	go func() {
		for err := range writeApi.Errors() {
			logger.Warnf("write error: %v", err)
		}
	}()
	url := getenv("ACTUATOR_ADDRESS", "ws://localhost:8502/api/ws")
	for {
		if err := logData(writeApi, url); err != nil {
			logger.Warn(err)
		}
		time.Sleep(1 * time.Second)
	}
}

func flattenStatus(fields map[string]interface{}, status interface{}, prefix string) {
	switch status := status.(type) {
	case map[string]interface{}:
		for k, v := range status {
			flattenStatus(fields, v, prefix+"."+k)
		}
	case []interface{}:
		for k, v := range status {
			flattenStatus(fields, v, fmt.Sprintf("%s.%d", prefix, k))
		}
	case nil:
	default:
		fields[prefix[1:]] = status
	}
}

var climbValues = map[string]float64{"stop": 0, "forward": 1, "reverse": -1}

// statusPoint turns one status document into tags, fields and a timestamp.
func statusPoint(status map[string]interface{}) (map[string]string, map[string]interface{}, time.Time) {
	tags := make(map[string]string)
	for _, k := range []string{"machine", "radio"} {
		if v, ok := status[k].(string); ok {
			tags[k] = v
		}
	}
	ts := time.Now()
	if v, ok := status["updated"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			ts = t
		}
	}
	fields := make(map[string]interface{})
	for k, v := range status {
		switch k {
		case "machine", "radio", "updated":
			continue
		}
		flattenStatus(fields, v, "."+k)
	}
	if climb, ok := fields["state.climb"].(string); ok {
		if v, ok := climbValues[climb]; ok {
			fields["state.climb_value"] = v
		}
	}
	delete(fields, "last_dispatch.time")
	return tags, fields, ts
}

func logData(writeApi api.WriteApi, url string) error {
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		var status map[string]interface{}
		if err := conn.ReadJSON(&status); err != nil {
			return err
		}
		tags, fields, ts := statusPoint(status)
		// write asynchronously
		writeApi.WritePoint(influxdb2.NewPoint("climber.status", tags, fields, ts))
	}
}
