// Package sensor defines the vehicle and sensor messages recorded by the
// logging bridge. Field layout follows the simulator's data types; every
// field is always serialized.
package sensor

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Type tags written on the header line of each record.
const (
	TypeCanBus           = "CanBusData"
	TypeClock            = "ClockData"
	TypeDetected2DObject = "Detected2DObjectData"
	TypeDetected3DObject = "Detected3DObjectData"
	TypeDetectedRadar    = "DetectedRadarObjectData"
	TypeGps              = "GpsData"
	TypeGpsOdometry      = "GpsOdometryData"
	TypeImage            = "ImageData"
	TypeImu              = "ImuData"
	TypePointCloud       = "PointCloudData"
	TypeCorrectedImu     = "CorrectedImuData"
	TypeSignalArray      = "SignalDataArray"
	TypeVehicleOdometry  = "VehicleOdometryData"
	TypeVehicleControl   = "VehicleControlData"
)

type Header struct {
	Name     string  `json:"name"`
	Frame    string  `json:"frame"`
	Time     float64 `json:"time"`
	Sequence uint32  `json:"sequence"`
}

type CanBusData struct {
	Header
	Speed           float32    `json:"speed"`
	Throttle        float32    `json:"throttle"`
	Braking         float32    `json:"braking"`
	Steering        float32    `json:"steering"`
	ParkingBrake    bool       `json:"parkingBrake"`
	HighBeamSignal  bool       `json:"highBeamSignal"`
	LowBeamSignal   bool       `json:"lowBeamSignal"`
	HazardLights    bool       `json:"hazardLights"`
	FogLights       bool       `json:"fogLights"`
	LeftTurnSignal  bool       `json:"leftTurnSignal"`
	RightTurnSignal bool       `json:"rightTurnSignal"`
	Wipers          bool       `json:"wipers"`
	InReverse       bool       `json:"inReverse"`
	Gear            int        `json:"gear"`
	EngineOn        bool       `json:"engineOn"`
	EngineRPM       float32    `json:"engineRPM"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	Altitude        float64    `json:"altitude"`
	Orientation     mgl32.Quat `json:"orientation"`
	Velocity        mgl32.Vec3 `json:"velocity"`
}

type ClockData struct {
	Clock float64 `json:"clock"`
}

type Detected2DObject struct {
	ID              uint32     `json:"id"`
	Label           string     `json:"label"`
	Score           float32    `json:"score"`
	Position        [2]float32 `json:"position"`
	Scale           [2]float32 `json:"scale"`
	LinearVelocity  mgl32.Vec3 `json:"linearVelocity"`
	AngularVelocity mgl32.Vec3 `json:"angularVelocity"`
}

type Detected2DObjectData struct {
	Header
	Data []Detected2DObject `json:"data"`
}

type Detected3DObject struct {
	ID              uint32     `json:"id"`
	Label           string     `json:"label"`
	Score           float32    `json:"score"`
	Position        mgl32.Vec3 `json:"position"`
	Rotation        mgl32.Quat `json:"rotation"`
	Scale           mgl32.Vec3 `json:"scale"`
	LinearVelocity  mgl32.Vec3 `json:"linearVelocity"`
	AngularVelocity mgl32.Vec3 `json:"angularVelocity"`
}

type Detected3DObjectData struct {
	Header
	Data []Detected3DObject `json:"data"`
}

type DetectedRadarObject struct {
	ID               int        `json:"id"`
	SensorAim        mgl32.Vec3 `json:"sensorAim"`
	SensorRight      mgl32.Vec3 `json:"sensorRight"`
	SensorPosition   mgl32.Vec3 `json:"sensorPosition"`
	SensorVelocity   mgl32.Vec3 `json:"sensorVelocity"`
	SensorAngle      float64    `json:"sensorAngle"`
	Position         mgl32.Vec3 `json:"position"`
	Velocity         mgl32.Vec3 `json:"velocity"`
	RelativePosition mgl32.Vec3 `json:"relativePosition"`
	RelativeVelocity mgl32.Vec3 `json:"relativeVelocity"`
	ColliderSize     mgl32.Vec3 `json:"colliderSize"`
	State            int        `json:"state"`
	NewDetection     bool       `json:"newDetection"`
}

type DetectedRadarObjectData struct {
	Header
	Data []DetectedRadarObject `json:"data"`
}

type GpsData struct {
	Header
	IgnoreMapOrigin bool    `json:"ignoreMapOrigin"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Altitude        float64 `json:"altitude"`
	Northing        float64 `json:"northing"`
	Easting         float64 `json:"easting"`
}

type GpsOdometryData struct {
	GpsData
	Orientation     mgl32.Quat `json:"orientation"`
	ForwardSpeed    float32    `json:"forwardSpeed"`
	Velocity        mgl32.Vec3 `json:"velocity"`
	AngularVelocity mgl32.Vec3 `json:"angularVelocity"`
	WheelAngle      float32    `json:"wheelAngle"`
}

// ImageData is one encoded camera frame. Data is written as base64.
type ImageData struct {
	Header
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

type ImuData struct {
	Header
	MeasurementSpan float64    `json:"measurementSpan"`
	Position        mgl32.Vec3 `json:"position"`
	Orientation     mgl32.Quat `json:"orientation"`
	Acceleration    mgl32.Vec3 `json:"acceleration"`
	LinearVelocity  mgl32.Vec3 `json:"linearVelocity"`
	AngularVelocity mgl32.Vec3 `json:"angularVelocity"`
}

type CorrectedImuData struct {
	Header
	Acceleration    mgl32.Vec3 `json:"acceleration"`
	Orientation     mgl32.Quat `json:"orientation"`
	AngularVelocity mgl32.Vec3 `json:"angularVelocity"`
}

// PointCloudData carries a lidar sweep in the sensor frame. Transform maps
// that frame to the vehicle frame.
type PointCloudData struct {
	Header
	LaserCount  int          `json:"laserCount"`
	Transform   mgl32.Mat4   `json:"transform"`
	Points      []mgl32.Vec3 `json:"points"`
	Intensities []float32    `json:"intensities"`
}

type SignalData struct {
	ID       uint       `json:"id"`
	Label    string     `json:"label"`
	Score    float32    `json:"score"`
	Position mgl32.Vec3 `json:"position"`
	Rotation mgl32.Quat `json:"rotation"`
	Scale    mgl32.Vec3 `json:"scale"`
}

type SignalDataArray struct {
	Header
	Data []SignalData `json:"data"`
}

type VehicleOdometryData struct {
	Time       float64 `json:"time"`
	Speed      float32 `json:"speed"`
	Steering   float32 `json:"steering"`
	WheelAngle float32 `json:"wheelAngle"`
}

// VehicleControlData is accepted as a subscription type only.
type VehicleControlData struct {
	TimeStamp        time.Time `json:"timeStamp"`
	Acceleration     *float32  `json:"acceleration"`
	Braking          *float32  `json:"braking"`
	SteerAngle       *float32  `json:"steerAngle"`
	SteerRate        *float32  `json:"steerRate"`
	SteerTarget      *float32  `json:"steerTarget"`
	TargetWheelAngle *float32  `json:"targetWheelAngle"`
	TargetGear       *int      `json:"targetGear"`
}
