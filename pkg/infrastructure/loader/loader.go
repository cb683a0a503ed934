package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/shopsched/shopsched/pkg/domain/entities"
	"github.com/shopsched/shopsched/pkg/scheduler"
)

var validate = validator.New()

// Dataset is the external shape of one scheduling problem: the machine
// fleet and the process instances to place on it.
type Dataset struct {
	Machines  []MachineRecord  `yaml:"machines" json:"machines" validate:"required,min=1,dive"`
	Instances []InstanceRecord `yaml:"process_instances" json:"process_instances" validate:"required,min=1,dive"`
}

// MachineRecord is the input shape of one machine.
type MachineRecord struct {
	ID              string              `yaml:"id" json:"id" validate:"required"`
	Name            string              `yaml:"name" json:"name"`
	Type            string              `yaml:"type" json:"type" validate:"required"`
	Active          *bool               `yaml:"active" json:"active"`
	Capabilities    []string            `yaml:"capabilities" json:"capabilities"`
	HourlyRate      float64             `yaml:"hourly_rate" json:"hourly_rate" validate:"gte=0"`
	CurrentWorkload int                 `yaml:"current_workload" json:"current_workload" validate:"gte=0"`
	WorkingHours    WorkingHoursRecord  `yaml:"working_hours" json:"working_hours"`
	Maintenance     []MaintenanceRecord `yaml:"maintenance" json:"maintenance" validate:"dive"`
	AvailableFrom   *Instant            `yaml:"available_from" json:"available_from"`
}

// WorkingHoursRecord is the input shape of a daily availability band.
// A zero record defaults to 08:00-17:00.
type WorkingHoursRecord struct {
	StartHour int `yaml:"start_hour" json:"start_hour" validate:"gte=0,lte=24"`
	EndHour   int `yaml:"end_hour" json:"end_hour" validate:"gte=0,lte=24"`
}

// MaintenanceRecord is the input shape of one maintenance window.
type MaintenanceRecord struct {
	Start Instant `yaml:"start" json:"start" validate:"required"`
	End   Instant `yaml:"end" json:"end" validate:"required"`
}

// InstanceRecord is the input shape of one process instance.
type InstanceRecord struct {
	ID               string   `yaml:"id" json:"id" validate:"required"`
	DisplayName      string   `yaml:"display_name" json:"display_name"`
	OrderID          string   `yaml:"order_id" json:"order_id"`
	MachineType      string   `yaml:"machine_type" json:"machine_type" validate:"required"`
	Capabilities     []string `yaml:"required_capabilities" json:"required_capabilities"`
	SetupTimeMinutes int      `yaml:"setup_time_minutes" json:"setup_time_minutes" validate:"gte=0"`
	CycleTimeMinutes int      `yaml:"cycle_time_minutes" json:"cycle_time_minutes" validate:"gte=0"`
	Quantity         int      `yaml:"quantity" json:"quantity" validate:"gte=0"`
	Dependencies     []string `yaml:"dependencies" json:"dependencies"`
	DueDate          *Instant `yaml:"due_date" json:"due_date"`
	Priority         string   `yaml:"priority" json:"priority"`
}

// Load reads and decodes a dataset file. The format is chosen by
// extension: .json decodes as JSON, everything else as YAML.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML dataset.
func ParseYAML(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("%w: %v", scheduler.ErrInvalidInput, err)
	}
	return &ds, nil
}

// ParseJSON decodes a JSON dataset.
func ParseJSON(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("%w: %v", scheduler.ErrInvalidInput, err)
	}
	return &ds, nil
}

// ToEntities validates the dataset and converts it to domain entities.
// All input errors surface here, before any scheduling is attempted.
func (d *Dataset) ToEntities() ([]entities.ProcessInstance, []entities.Machine, error) {
	if err := validate.Struct(d); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", scheduler.ErrInvalidInput, err)
	}

	machines := make([]entities.Machine, 0, len(d.Machines))
	for _, rec := range d.Machines {
		machine, err := rec.toEntity()
		if err != nil {
			return nil, nil, err
		}
		machines = append(machines, *machine)
	}

	instances := make([]entities.ProcessInstance, 0, len(d.Instances))
	for _, rec := range d.Instances {
		inst, err := rec.toEntity()
		if err != nil {
			return nil, nil, err
		}
		instances = append(instances, *inst)
	}

	return instances, machines, nil
}

func (r *MachineRecord) toEntity() (*entities.Machine, error) {
	hours := entities.WorkingHours{StartHour: r.WorkingHours.StartHour, EndHour: r.WorkingHours.EndHour}
	if hours == (entities.WorkingHours{}) {
		hours = entities.WorkingHours{StartHour: 8, EndHour: 17}
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	machine := entities.Machine{
		ID:              r.ID,
		Name:            r.Name,
		Type:            r.Type,
		IsActive:        active,
		Capabilities:    r.Capabilities,
		HourlyRate:      decimal.NewFromFloat(r.HourlyRate),
		CurrentWorkload: r.CurrentWorkload,
		WorkingHours:    hours,
	}
	if r.AvailableFrom != nil {
		machine.AvailableFrom = r.AvailableFrom.Time
	}
	for _, w := range r.Maintenance {
		machine.MaintenanceWindows = append(machine.MaintenanceWindows, entities.MaintenanceWindow{
			Start: w.Start.Time,
			End:   w.End.Time,
		})
	}

	if err := machine.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", scheduler.ErrInvalidInput, err)
	}
	return &machine, nil
}

func (r *InstanceRecord) toEntity() (*entities.ProcessInstance, error) {
	tier, err := entities.ParsePriorityTier(r.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: process instance %s: %v", scheduler.ErrInvalidInput, r.ID, err)
	}

	quantity := r.Quantity
	if quantity == 0 {
		quantity = 1
	}

	inst := entities.ProcessInstance{
		ID:                   r.ID,
		DisplayName:          r.DisplayName,
		OrderID:              r.OrderID,
		MachineType:          r.MachineType,
		RequiredCapabilities: r.Capabilities,
		SetupTimeMinutes:     r.SetupTimeMinutes,
		CycleTimeMinutes:     r.CycleTimeMinutes,
		Quantity:             quantity,
		Dependencies:         r.Dependencies,
		CustomerPriority:     tier,
	}
	if r.DueDate != nil {
		due := r.DueDate.Time
		inst.DueDate = &due
	}

	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", scheduler.ErrInvalidInput, err)
	}
	return &inst, nil
}
