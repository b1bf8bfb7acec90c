// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package halsim

import "math"

// Channel counts.
//
const (
	NumJoysticks      = 6
	NumJoystickButton = 12
	MaxJoystickAxes   = 12
	MaxJoystickPOVs   = 12
	NumAnalogOutputs  = 8
	NumAnalogInputs   = 8
	NumAnalogTriggers = 8
	NumPWM            = 20
	NumD0PWM          = 6
	NumRelays         = 8
	NumMXP            = 16
	NumDIO            = 26
	NumFilters        = 3
	NumEncoders       = 4
	NumCounters       = 8
	NumSolenoids      = 8
	NumPDPChannels    = 16
)

// AllianceStationRed1 is the default alliance station.
//
const AllianceStationRed1 = 0

// The register schema. Keys are part of the external interface of the store:
// simulated devices and tests address registers by these names.
//
// Initial values are set in newRegisters.
//
type registers struct {
	AllianceStation int `hal:"in,alliance_station"`

	Time    timeRegs
	Control control
	// resource type -> instance numbers, filled by usage reporting.
	Reports   map[string]interface{} `hal:",reports,notify"`
	Joysticks [NumJoysticks]joystick

	FPGAButton bool        `hal:"in,fpga_button"`
	ErrorData  interface{} `hal:"out,error_data"`

	Accelerometer accelerometer

	// Free-form device namespace. By convention, keys are named
	// devicename_bus_port_field, like "adxrs450_spi_0_angle".
	Robot map[string]interface{}

	AnalogSampleRate float64                          `hal:"out,analog_sample_rate"`
	AnalogOut        [NumAnalogOutputs]analogOut      `hal:",analog_out,notify"`
	AnalogIn         [NumAnalogInputs]analogIn        `hal:",analog_in,notify"`
	AnalogTrigger    [NumAnalogTriggers]analogTrigger `hal:",analog_trigger"`
	Compressor       compressor                       `hal:",compressor,notify"`

	PWM           [NumPWM]pwm            `hal:",pwm,notify"`
	PWMLoopTiming int                    `hal:"in,pwm_loop_timing"`
	D0PWM         [NumD0PWM]interface{}  `hal:"out,d0_pwm"`
	D0PWMRate     interface{}            `hal:"out,d0_pwm_rate"`
	Relay         [NumRelays]relay       `hal:",relay,notify"`
	MXP           [NumMXP]mxp            `hal:",mxp"`
	DIO           [NumDIO]dio            `hal:",dio,notify"`
	Filter        [NumFilters]filter     `hal:",filter,notify"`
	Encoder       [NumEncoders]encoder   `hal:",encoder"`
	Counter       [NumCounters]counter   `hal:",counter"`
	ProgramState  interface{}            `hal:"out,user_program_state"`
	Power         power                  `hal:",power"`
	Solenoid      [NumSolenoids]solenoid `hal:",solenoid,notify"`
	PDP           pdp                    `hal:",pdp"`
	CAN           map[string]interface{} `hal:",CAN,notify"` // keyed by CANKey(device number)
}

type timeRegs struct {
	HasSource bool `hal:"in,has_source"`
	// used to compute the FPGA time
	ProgramStart float64 `hal:"out,program_start"`
	// used to compute the match time, set to the FPGA time
	MatchStart interface{} `hal:"out,match_start"`
}

type control struct {
	HasSource   bool `hal:"in,has_source"`
	Enabled     bool `hal:"out"`
	Autonomous  bool `hal:"out"`
	Test        bool `hal:"out"`
	EStop       bool `hal:"out,eStop"`
	FMSAttached bool `hal:"in,fmsAttached"`
	DSAttached  bool `hal:"out,dsAttached"`
}

type joystick struct {
	HasSource bool          `hal:"in,has_source"`
	Buttons   []interface{} `hal:"in"` // numbered 1-12, 0 is ignored
	Axes      []float64     `hal:"in"` // -1 to 1
	POVs      []int         `hal:"in,povs"`
}

type accelerometer struct {
	HasSource bool    `hal:"in,has_source"`
	Active    bool    `hal:"out"`
	Range     int     `hal:"out"`
	X         float64 `hal:"in"`
	Y         float64 `hal:"in"`
	Z         float64 `hal:"in"`
}

type analogOut struct {
	Initialized bool    `hal:"out"`
	Voltage     float64 `hal:"out"`
}

type analogIn struct {
	HasSource      bool    `hal:"in,has_source"`
	Initialized    bool    `hal:"out"`
	AvgBits        int     `hal:"out,avg_bits"`
	OversampleBits int     `hal:"out,oversample_bits"`
	Value          int     `hal:"in"`
	AvgValue       int     `hal:"in,avg_value"`
	Voltage        float64 `hal:"in"`
	AvgVoltage     float64 `hal:"in,avg_voltage"`
	LSBWeight      int     `hal:"in,lsb_weight"`
	Offset         int     `hal:"in"`

	AccumulatorInitialized bool  `hal:"out,accumulator_initialized"`
	AccumulatorCenter      int   `hal:"out,accumulator_center"`
	AccumulatorValue       int64 `hal:"in,accumulator_value"`
	AccumulatorCount       int64 `hal:"in,accumulator_count"` // never 0
	AccumulatorDeadband    int   `hal:"out,accumulator_deadband"`
}

type analogTrigger struct {
	HasSource   bool        `hal:"in,has_source"`
	Initialized bool        `hal:"out"`
	Port        int         `hal:"out"`
	TrigLower   interface{} `hal:"out,trig_lower"`
	TrigUpper   interface{} `hal:"out,trig_upper"`
	TrigType    interface{} `hal:"out,trig_type"` // "averaged" or "filtered"
	TrigState   bool        `hal:"out,trig_state"`
}

type compressor struct {
	HasSource         bool    `hal:"in,has_source"`
	Initialized       bool    `hal:"out"`
	On                bool    `hal:"in"`
	ClosedLoopEnabled bool    `hal:"out,closed_loop_enabled"`
	PressureSwitch    bool    `hal:"in,pressure_switch"`
	Current           float64 `hal:"in"`
}

type pwm struct {
	Initialized bool        `hal:"out"`
	Type        interface{} `hal:"out"` // controller type set by usage reporting
	RawValue    int         `hal:"out,raw_value"`
	Value       float64     `hal:"out"`
	PeriodScale interface{} `hal:"out,period_scale"`
	ZeroLatch   bool        `hal:"out,zero_latch"`
}

type relay struct {
	Initialized bool `hal:"out"`
	Fwd         bool `hal:"out"`
	Rev         bool `hal:"out"`
}

type mxp struct {
	Initialized bool `hal:"out"`
}

type dio struct {
	HasSource   bool        `hal:"in,has_source"`
	Initialized bool        `hal:"out"`
	Value       bool        `hal:"in"`
	PulseLength interface{} `hal:"out,pulse_length"`
	IsInput     bool        `hal:"out,is_input"`
	FilterIdx   interface{} `hal:"out,filter_idx"`
}

type filter struct {
	Enabled bool `hal:"out"`
	Period  int  `hal:"out"`
}

type encoder struct {
	HasSource        bool                   `hal:"in,has_source"`
	Initialized      bool                   `hal:"out"`
	Config           map[string]interface{} `hal:"out"` // pins and modules
	Count            int                    `hal:"in"`
	Period           float64                `hal:"in"`
	MaxPeriod        float64                `hal:"out,max_period"`
	Direction        bool                   `hal:"in"`
	ReverseDirection bool                   `hal:"out,reverse_direction"`
	SamplesToAverage int                    `hal:"out,samples_to_average"`
}

type counter struct {
	HasSource        bool    `hal:"in,has_source"`
	Initialized      bool    `hal:"out"`
	Count            int     `hal:"in"`
	Period           float64 `hal:"out"`
	MaxPeriod        float64 `hal:"out,max_period"`
	Direction        bool    `hal:"in"`
	ReverseDirection bool    `hal:"out,reverse_direction"`
	SamplesToAverage int     `hal:"out,samples_to_average"`
	Mode             int     `hal:"out"`
	AverageSize      int     `hal:"out,average_size"`

	UpSourceChannel   int  `hal:"out,up_source_channel"`
	UpSourceTrigger   bool `hal:"out,up_source_trigger"`
	DownSourceChannel int  `hal:"out,down_source_channel"`
	DownSourceTrigger bool `hal:"out,down_source_trigger"`

	UpdateWhenEmpty bool `hal:"out,update_when_empty"`

	UpRisingEdge    bool `hal:"out,up_rising_edge"`
	UpFallingEdge   bool `hal:"out,up_falling_edge"`
	DownRisingEdge  bool `hal:"out,down_rising_edge"`
	DownFallingEdge bool `hal:"out,down_falling_edge"`

	PulseLengthThreshold float64 `hal:"out,pulse_length_threshold"`
}

type power struct {
	HasSource     bool    `hal:"in,has_source"`
	VinVoltage    float64 `hal:"in,vin_voltage"`
	VinCurrent    float64 `hal:"in,vin_current"`
	UserVoltage6V float64 `hal:"in,user_voltage_6v"`
	UserCurrent6V float64 `hal:"in,user_current_6v"`
	UserActive6V  bool    `hal:"in,user_active_6v"`
	UserFaults6V  int     `hal:"in,user_faults_6v"`
	UserVoltage5V float64 `hal:"in,user_voltage_5v"`
	UserCurrent5V float64 `hal:"in,user_current_5v"`
	UserActive5V  bool    `hal:"in,user_active_5v"`
	UserFaults5V  int     `hal:"in,user_faults_5v"`
	UserVoltage3V float64 `hal:"in,user_voltage_3v3"`
	UserCurrent3V float64 `hal:"in,user_current_3v3"`
	UserActive3V  bool    `hal:"in,user_active_3v3"`
	UserFaults3V  int     `hal:"in,user_faults_3v3"`
}

type solenoid struct {
	Initialized bool        `hal:"out"`
	Value       interface{} `hal:"out"`
}

type pdp struct {
	HasSource    bool                    `hal:"in,has_source"`
	Temperature  float64                 `hal:"in"`
	Voltage      float64                 `hal:"in"`
	Current      [NumPDPChannels]float64 `hal:"in"`
	TotalCurrent float64                 `hal:"in,total_current"`
	TotalPower   float64                 `hal:"in,total_power"`
	TotalEnergy  float64                 `hal:"in,total_energy"`
}

func newRegisters(programStart float64) *registers {
	r := &registers{
		AllianceStation:  AllianceStationRed1,
		AnalogSampleRate: 1024,
		PWMLoopTiming:    40, // what the roboRIO returns
		Power: power{
			UserVoltage6V: 6,
			UserVoltage5V: 5,
			UserVoltage3V: 3.3,
		},
	}
	r.Time.ProgramStart = programStart
	for i := range r.Joysticks {
		j := &r.Joysticks[i]
		j.Buttons = make([]interface{}, NumJoystickButton+1)
		for b := 1; b <= NumJoystickButton; b++ {
			j.Buttons[b] = false
		}
		j.Axes = make([]float64, MaxJoystickAxes)
		j.POVs = make([]int, MaxJoystickPOVs)
		for p := range j.POVs {
			j.POVs[p] = -1
		}
	}
	for i := range r.AnalogIn {
		a := &r.AnalogIn[i]
		a.LSBWeight = 1
		a.Offset = 65535
		a.AccumulatorCount = 1
	}
	for i := range r.Encoder {
		r.Encoder[i].Config = map[string]interface{}{}
		r.Encoder[i].Period = math.MaxFloat64
	}
	for i := range r.Counter {
		r.Counter[i].Period = math.MaxFloat64
	}
	return r
}
