package timestamp_test

import (
	"fmt"

	"github.com/timor11/librealsense/pkg/timestamp"
)

func ExampleParse() {
	fmt.Println(timestamp.Parse("2023-01-15T12:30:45Z"))
	fmt.Println(timestamp.Parse(1673785845))
	// Output:
	// 1673785845000
	// 1673785845000
}

func ExampleDomain_EpochBased() {
	d, _ := timestamp.ParseDomain("hardware-clock")
	fmt.Println(d, d.EpochBased())
	// Output:
	// hardware-clock false
}
