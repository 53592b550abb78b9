package bridge

import (
	"go.uber.org/zap"

	"logbridge/pkg/codec"
	"logbridge/pkg/sensor"
	"logbridge/pkg/sink"
)

// Name identifies the logging bridge among bridge implementations.
const Name = "Logging"

// Factory creates logging bridge instances and announces the message types
// they accept.
type Factory struct {
	opts  sink.Options
	codec *codec.Codec
	log   *zap.Logger
}

func NewFactory(opts sink.Options, c *codec.Codec, log *zap.Logger) *Factory {
	if c == nil {
		c = codec.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = sink.NewMetrics(nil)
	}
	return &Factory{opts: opts, codec: c, log: log}
}

func (f *Factory) Name() string { return Name }

// CreateInstance returns a new disconnected sink. "Connecting" an instance
// opens its record file.
func (f *Factory) CreateInstance() *sink.GzipSink {
	return sink.New(f.opts, f.log)
}

// Register announces every built-in sensor type as publishable and declares
// vehicle control as a subscription type.
func (f *Factory) Register(p Plugin) {
	RegisterPublisher[sensor.CanBusData](p, sensor.TypeCanBus, f.codec)
	RegisterPublisher[sensor.ClockData](p, sensor.TypeClock, f.codec)
	RegisterPublisher[sensor.Detected2DObjectData](p, sensor.TypeDetected2DObject, f.codec)
	RegisterPublisher[sensor.Detected3DObjectData](p, sensor.TypeDetected3DObject, f.codec)
	RegisterPublisher[sensor.DetectedRadarObjectData](p, sensor.TypeDetectedRadar, f.codec)
	RegisterPublisher[sensor.GpsData](p, sensor.TypeGps, f.codec)
	RegisterPublisher[sensor.GpsOdometryData](p, sensor.TypeGpsOdometry, f.codec)
	RegisterPublisher[sensor.ImageData](p, sensor.TypeImage, f.codec)
	RegisterPublisher[sensor.ImuData](p, sensor.TypeImu, f.codec)
	RegisterPublisher[sensor.CorrectedImuData](p, sensor.TypeCorrectedImu, f.codec)
	RegisterPublisher[sensor.PointCloudData](p, sensor.TypePointCloud, f.codec)
	RegisterPublisher[sensor.SignalDataArray](p, sensor.TypeSignalArray, f.codec)
	RegisterPublisher[sensor.VehicleOdometryData](p, sensor.TypeVehicleOdometry, f.codec)

	DeclareSubscriber[sensor.VehicleControlData](p, sensor.TypeVehicleControl)
}

// Codec returns the codec publishers of this factory serialize with.
func (f *Factory) Codec() *codec.Codec { return f.codec }
