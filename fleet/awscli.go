package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"strato/gateway"
)

// CloudAPI is the region-scoped slice of the cloud provider this package
// needs: list spot instances by filter, terminate by id list.
type CloudAPI interface {
	SpotInstances(ctx context.Context, region string) ([]InstanceRecord, error)
	Terminate(ctx context.Context, region string, ids []string) (map[string]string, error)
}

// AWSCLI implements CloudAPI over the aws command-line tool through the
// command gateway. The cloud stays an opaque, possibly-slow external
// operation with a declared timeout.
type AWSCLI struct {
	Runner  gateway.Runner
	Timeout time.Duration
}

func (a *AWSCLI) timeout() time.Duration {
	if a.Timeout == 0 {
		return 30 * time.Second
	}
	return a.Timeout
}

type awsInstance struct {
	InstanceID      string `json:"InstanceId"`
	InstanceType    string `json:"InstanceType"`
	PublicIPAddress string `json:"PublicIpAddress"`
	LaunchTime      string `json:"LaunchTime"`
	State           struct {
		Name string `json:"Name"`
	} `json:"State"`
	Tags []struct {
		Key   string `json:"Key"`
		Value string `json:"Value"`
	} `json:"Tags"`
}

type describeOutput struct {
	Reservations []struct {
		Instances []awsInstance `json:"Instances"`
	} `json:"Reservations"`
}

// SpotInstances lists instances carrying the spot lifecycle marking in the
// states that still hold capacity. Absent fields become "unknown"/"N/A"
// rather than errors.
func (a *AWSCLI) SpotInstances(ctx context.Context, region string) ([]InstanceRecord, error) {
	res := a.Runner.Run(ctx, gateway.Spec{
		Name: "aws",
		Args: []string{
			"ec2", "describe-instances",
			"--region", region,
			"--filters",
			"Name=instance-lifecycle,Values=spot",
			"Name=instance-state-name,Values=pending,running,stopping,stopped",
			"--output", "json",
			"--no-cli-pager",
		},
		Timeout: a.timeout(),
	})
	if !res.OK {
		return nil, classify(region, "describe-instances", res)
	}

	var out describeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return nil, fmt.Errorf("region %s: parse describe-instances output: %w", region, err)
	}

	var records []InstanceRecord
	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			records = append(records, normalize(region, inst))
		}
	}
	return records, nil
}

type terminateOutput struct {
	TerminatingInstances []struct {
		InstanceID   string `json:"InstanceId"`
		CurrentState struct {
			Name string `json:"Name"`
		} `json:"CurrentState"`
	} `json:"TerminatingInstances"`
}

// Terminate issues one termination batch and maps each id to its
// cloud-reported state.
func (a *AWSCLI) Terminate(ctx context.Context, region string, ids []string) (map[string]string, error) {
	args := []string{
		"ec2", "terminate-instances",
		"--region", region,
		"--output", "json",
		"--no-cli-pager",
		"--instance-ids",
	}
	args = append(args, ids...)

	res := a.Runner.Run(ctx, gateway.Spec{Name: "aws", Args: args, Timeout: a.timeout()})
	if !res.OK {
		return nil, classify(region, "terminate-instances", res)
	}

	var out terminateOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return nil, fmt.Errorf("region %s: parse terminate-instances output: %w", region, err)
	}

	states := make(map[string]string, len(out.TerminatingInstances))
	for _, inst := range out.TerminatingInstances {
		states[inst.InstanceID] = inst.CurrentState.Name
	}
	return states, nil
}

func normalize(region string, inst awsInstance) InstanceRecord {
	rec := InstanceRecord{
		ID:         inst.InstanceID,
		Region:     region,
		State:      inst.State.Name,
		Type:       inst.InstanceType,
		PublicIP:   inst.PublicIPAddress,
		LaunchTime: inst.LaunchTime,
		Tags:       make(map[string]string, len(inst.Tags)),
	}
	if rec.State == "" {
		rec.State = "unknown"
	}
	if rec.Type == "" {
		rec.Type = "unknown"
	}
	if rec.PublicIP == "" {
		rec.PublicIP = "N/A"
	}
	if rec.LaunchTime == "" {
		rec.LaunchTime = "unknown"
	}
	for _, tag := range inst.Tags {
		rec.Tags[tag.Key] = tag.Value
	}
	return rec
}

func classify(region, op string, res gateway.Result) error {
	if strings.Contains(res.Stderr, "UnauthorizedOperation") ||
		strings.Contains(res.Stderr, "AuthFailure") {
		return fmt.Errorf("region %s: %s: %w", region, op, ErrAuthorizationDenied)
	}
	if res.TimedOut() {
		return fmt.Errorf("region %s: %s: %w", region, op, res.Err)
	}
	return fmt.Errorf("region %s: %s: %s", region, op, strings.TrimSpace(res.Stderr))
}
