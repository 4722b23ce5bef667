/*
 * Copyright (C) 2025-2025, Refaktory. All rights reserved.
 * See LICENSE for license information.
 */

package quantity

import (
	"fmt"
	"math"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/metrics/pkg/apis/metrics/v1beta1"
)

// Parse decodes a Kubernetes resource quantity string into a signed 64-bit
// integer with ceiling semantics on fractional results.
// The suffix is interpreted as a multiplier on the leading number, so
// "500m" decodes to ceil(500 * 0.001) = 1 and "2Gi" decodes to 2 << 30.
// Parameters:
//
//	value: Quantity string such as "500m", "2Gi" or "250"
//
// Returns:
//
//	Decoded integer value, or an error for empty or malformed input
func Parse(value string) (int64, error) {
	q, err := resource.ParseQuantity(value)
	if err != nil {
		return 0, fmt.Errorf("could not parse quantity %q: %v", value, err)
	}
	return FromQuantity(q)
}

// FromQuantity converts an already parsed resource.Quantity with the same
// ceiling semantics as Parse.
// Parameters:
//
//	q: Parsed quantity
//
// Returns:
//
//	Decoded integer value, or an error when the value does not fit in int64
func FromQuantity(q resource.Quantity) (int64, error) {
	f := q.AsApproximateFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("quantity %s is out of range", q.String())
	}
	f = math.Ceil(f)
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("quantity %s overflows int64", q.String())
	}
	return int64(f), nil
}

// PodCPUTotal sums the decoded CPU usage over all containers of a pod
// metrics snapshot. The result is in the same multiplier unit the
// auto-shutdown threshold is compared against.
// Parameters:
//
//	metrics: Pod metrics as reported by the metrics.k8s.io API
//
// Returns:
//
//	Total CPU usage of the pod, or an error if any container value is malformed
func PodCPUTotal(metrics *v1beta1.PodMetrics) (int64, error) {
	var total int64
	for i := range metrics.Containers {
		usage := metrics.Containers[i].Usage[corev1.ResourceCPU]
		val, err := FromQuantity(usage)
		if err != nil {
			return 0, fmt.Errorf("container %s: %v", metrics.Containers[i].Name, err)
		}
		total += val
	}
	return total, nil
}
