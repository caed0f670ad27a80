package devices

import (
	"fmt"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/ui"
	"gopkg.in/yaml.v3"
)

// Document is the persisted form of the device set
type Document struct {
	Controller configuration.ControllerConfig `json:"controller" yaml:"controller"`
	Sensors    []configuration.SensorConfig   `json:"sensors" yaml:"sensors"`
	Fans       []configuration.FanConfig      `json:"fans" yaml:"fans"`
}

func DefaultDocument() Document {
	return Document{
		Controller: configuration.DefaultControllerConfig(),
	}
}

// Decode parses a document, keeping default tunables for everything not present
func Decode(data []byte) (Document, error) {
	doc := DefaultDocument()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("invalid device set document: %w", err)
	}
	return doc, nil
}

func (d Document) Encode() ([]byte, error) {
	return yaml.Marshal(d)
}

// FromDocument creates the devices defined by the given document using real hardware drivers
func FromDocument(doc Document) (fanList []*Fan, sensorList []*Sensor) {
	return DefaultFactory.FromDocument(doc)
}

// FromDocument creates the devices defined by the given document.
// Malformed entries are skipped, the reason is logged.
func (f Factory) FromDocument(doc Document) (fanList []*Fan, sensorList []*Sensor) {
	for i, config := range doc.Sensors {
		if err := configuration.ValidateSensor(config); err != nil {
			ui.Warning("Skipping sensor #%d: %v", i+1, err)
			continue
		}
		sensor, err := f.NewSensor(config)
		if err != nil {
			ui.Warning("Skipping sensor #%d: %v", i+1, err)
			continue
		}
		sensorList = append(sensorList, sensor)
	}

	for i, config := range doc.Fans {
		if err := configuration.ValidateFan(config); err != nil {
			ui.Warning("Skipping fan #%d: %v", i+1, err)
			continue
		}
		fan, err := f.NewFan(config)
		if err != nil {
			ui.Warning("Skipping fan #%d: %v", i+1, err)
			continue
		}
		fanList = append(fanList, fan)
	}

	return fanList, sensorList
}
