package fleet_test

import (
	"fmt"
	"sort"

	"github.com/lex00/wetwire-fleet-go/fleet"
)

func ExampleBuild() {
	tmpl, err := fleet.Build(fleet.Default())
	if err != nil {
		panic(err)
	}

	names := make([]string, 0, len(tmpl.Resources))
	for name := range tmpl.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name, tmpl.Resources[name].Type)
	}
	// Output:
	// FirmwareRepository AWS::ECR::Repository
	// JobExecutionRule AWS::IoT::TopicRule
	// JobUpdateFunction AWS::Lambda::Function
	// JobUpdateInvokePermission AWS::Lambda::Permission
	// JobUpdateRole AWS::IAM::Role
}

func ExampleThingArnPattern() {
	cfg := fleet.Default()
	fmt.Println(fleet.ThingArnPattern(cfg))
	// Output: arn:${AWS::Partition}:iot:${AWS::Region}:${AWS::AccountId}:thing/device-thing-*
}
