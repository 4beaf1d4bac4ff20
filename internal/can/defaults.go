package can

// Message ids of the cyclist AEB test rig.
const (
	IDTime         uint32 = 0x600
	IDPosition     uint32 = 0x601
	IDAltitude     uint32 = 0x602
	IDSpeed        uint32 = 0x603
	IDVelocity     uint32 = 0x604
	IDAccel        uint32 = 0x605
	IDAccelVehicle uint32 = 0x606
	IDHeading      uint32 = 0x607
	IDRate         uint32 = 0x608
	IDRateVehicle  uint32 = 0x609
	IDDistance     uint32 = 0x60B
	IDPosLocal     uint32 = 0x60C
	IDVelLocal     uint32 = 0x60D
	IDAngAccel     uint32 = 0x60E
	IDAngAccelVeh  uint32 = 0x60F
	IDBrakeLight   uint32 = 0x570
)

func i16(name string, offset int, scale float64) SignalSpec {
	return SignalSpec{Name: name, Offset: offset, Scale: scale, Format: Int16, Count: 1}
}

func i32(name string, offset int, scale float64) SignalSpec {
	return SignalSpec{Name: name, Offset: offset, Scale: scale, Format: Int32, Count: 1}
}

// DefaultLayouts returns the rig's layout. Latitude sits before longitude in
// the 0x601 payload.
func DefaultLayouts() map[uint32][]SignalSpec {
	return map[uint32][]SignalSpec{
		IDPosition: {i32("PosLat", 0, 1e-7), i32("PosLon", 4, 1e-7)},
		IDAltitude: {i32("Altitude", 0, 0.001)},
		IDSpeed:    {i16("Speed2D", 6, 0.01)},
		IDVelocity: {i16("VelForward", 0, 0.01), i16("VelLateral", 2, 0.01)},
		IDAccel:    {i16("AccelX", 0, 0.01), i16("AccelY", 2, 0.01), i16("AccelZ", 4, 0.01)},
		IDAccelVehicle: {
			i16("AccelForward", 0, 0.01), i16("AccelLateral", 2, 0.01), i16("AccelSlip", 6, 0.01),
		},
		IDHeading: {
			i16("AngleHeading", 0, 0.01), i16("AnglePitch", 2, 0.01), i16("AngleRoll", 4, 0.01),
		},
		IDRate:        {i16("AngRateX", 0, 0.01), i16("AngRateY", 2, 0.01), i16("AngRateZ", 4, 0.01)},
		IDRateVehicle: {i16("AngRateForward", 0, 0.01), i16("AngRateLateral", 2, 0.01)},
		IDDistance:    {i16("DistanceWithHold", 0, 0.001), i16("Distance", 4, 0.001)},
		IDPosLocal:    {i32("PosLocalX", 0, 0.0001), i32("PosLocalY", 4, 0.0001)},
		IDVelLocal: {
			i16("VelLocalX", 0, 0.01), i16("VelLocalY", 2, 0.01),
			i16("AngleLocalYaw", 4, 0.01), i16("AngleLocalTrack", 6, 0.01),
		},
		IDAngAccel:    {i16("AngAccelX", 0, 0.1), i16("AngAccelY", 2, 0.1), i16("AngAccelZ", 4, 0.1)},
		IDAngAccelVeh: {i16("AngAccelForward", 0, 0.1), i16("AngAccelLateral", 2, 0.1)},
	}
}

// DefaultTable builds the rig's decode table.
func DefaultTable() *DecodeTable {
	t, err := NewDecodeTable(DefaultLayouts())
	if err != nil {
		panic("can: default layouts: " + err.Error())
	}
	return t
}
