package kserve

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// InferenceService is the subset of the serving.kserve.io/v1beta1 resource
// that the trainer writes and reads back. The KServe Go SDK is not used; its
// Kubernetes version pins conflict with client-go.
type InferenceService struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   InferenceServiceSpec   `json:"spec,omitempty"`
	Status InferenceServiceStatus `json:"status,omitempty"`
}

type InferenceServiceSpec struct {
	Predictor PredictorSpec `json:"predictor"`
}

// PredictorSpec serves a single model. Trainee-facing models keep one replica
// warm so that the first evaluation does not wait for a cold start.
type PredictorSpec struct {
	MinReplicas *int32         `json:"minReplicas,omitempty"`
	Model       *ISvcModelSpec `json:"model,omitempty"`
}

// ISvcModelSpec selects the serving runtime and model weights.
type ISvcModelSpec struct {
	// ModelFormat is "vLLM" for response models and "huggingface" for
	// embedding models.
	ModelFormat ModelFormat `json:"modelFormat"`
	Runtime     *string     `json:"runtime,omitempty"`
	// StorageURI is where the weights live, e.g. "hf://org/model".
	StorageURI *string                     `json:"storageUri,omitempty"`
	Resources  corev1.ResourceRequirements `json:"resources,omitempty"`
	Args       []string                    `json:"args,omitempty"`
}

type ModelFormat struct {
	Name    string  `json:"name"`
	Version *string `json:"version,omitempty"`
}

// InferenceServiceStatus is written by the KServe controller.
type InferenceServiceStatus struct {
	Conditions []StatusCondition `json:"conditions,omitempty"`
	// URL is the externally routed address.
	URL string `json:"url,omitempty"`
	// Address holds the cluster-local address, preferred for in-cluster calls.
	Address *Addressable `json:"address,omitempty"`
}

type Addressable struct {
	URL string `json:"url,omitempty"`
}

// StatusCondition follows the Knative condition schema.
type StatusCondition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

const conditionReady = "Ready"

// IsReady reports whether the Ready condition is True.
func (s *InferenceServiceStatus) IsReady() bool {
	c := s.readyCondition()
	return c != nil && c.Status == "True"
}

// PendingReason describes why a model cannot answer prompts yet.
func (s *InferenceServiceStatus) PendingReason() string {
	if c := s.readyCondition(); c != nil && c.Message != "" {
		return c.Message
	}
	return "pending"
}

// baseURL returns the address models are reached at, preferring the
// cluster-local one.
func (s *InferenceServiceStatus) baseURL() string {
	if s.Address != nil && s.Address.URL != "" {
		return s.Address.URL
	}
	return s.URL
}

func (s *InferenceServiceStatus) readyCondition() *StatusCondition {
	for i := range s.Conditions {
		if s.Conditions[i].Type == conditionReady {
			return &s.Conditions[i]
		}
	}
	return nil
}
