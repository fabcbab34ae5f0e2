package kserve

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/prompt-trainer/internal/metrics"
)

var isvcGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

const (
	defaultReadyTimeout = 10 * time.Minute
	teardownGracePeriod = int64(30)
)

// Manager deploys and tracks the self-hosted response and embedding models
// in one namespace.
type Manager struct {
	client    dynamic.Interface
	namespace string
}

// NewManager connects to the cluster with the in-cluster service account or
// a kubeconfig (the default loading rules when kubeconfig is empty).
func NewManager(namespace string, kubeconfig string, inCluster bool) (*Manager, error) {
	config, err := restConfig(kubeconfig, inCluster)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	client, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	return NewManagerWithClient(client, namespace), nil
}

func restConfig(kubeconfig string, inCluster bool) (*rest.Config, error) {
	if inCluster {
		return rest.InClusterConfig()
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
}

// NewManagerWithClient creates a Manager around an existing dynamic client.
func NewManagerWithClient(client dynamic.Interface, namespace string) *Manager {
	return &Manager{client: client, namespace: namespace}
}

func (m *Manager) resource() dynamic.ResourceInterface {
	return m.client.Resource(isvcGVR).Namespace(m.namespace)
}

// CheckCRDAvailable returns an error if InferenceServices cannot be listed,
// usually because KServe is not installed.
func (m *Manager) CheckCRDAvailable(ctx context.Context) error {
	if _, err := m.resource().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("KServe InferenceService CRD is not available in the cluster: %w", err)
	}
	return nil
}

// Deploy creates the model's InferenceService, or updates it when a model of
// that name already exists, and waits until it is ready.
func (m *Manager) Deploy(ctx context.Context, cfg ModelConfig) (*ModelStatus, error) {
	isvc := BuildInferenceService(cfg, m.namespace)
	name := isvc.Name

	obj, err := toUnstructured(isvc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert InferenceService: %w", err)
	}

	slog.Info("deploying model",
		"name", name,
		"role", roleOf(isvc),
		"model_uri", cfg.ModelURI,
		"gpu_count", cfg.GPUCount,
	)

	if err := m.apply(ctx, obj); err != nil {
		return nil, err
	}

	ready, err := m.waitForReady(ctx, name, cfg.ReadyTimeout)
	if err != nil {
		return nil, fmt.Errorf("InferenceService %s not ready: %w", name, err)
	}
	status := m.statusFromISVC(ready)
	return &status, nil
}

// apply creates obj, replacing the spec of an existing object of the same name.
func (m *Manager) apply(ctx context.Context, obj *unstructured.Unstructured) error {
	name := obj.GetName()
	_, err := m.resource().Create(ctx, obj, metav1.CreateOptions{})
	if err == nil {
		slog.Debug("InferenceService created", "name", name)
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create InferenceService %s: %w", name, err)
	}

	existing, err := m.resource().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get InferenceService %s: %w", name, err)
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	if _, err := m.resource().Update(ctx, obj, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update InferenceService %s: %w", name, err)
	}
	slog.Info("InferenceService updated", "name", name)
	return nil
}

// Teardown deletes a model. Deleting a model that does not exist succeeds.
func (m *Manager) Teardown(ctx context.Context, name string) error {
	sanitized := sanitizeName(name)
	slog.Info("tearing down model", "name", sanitized)

	grace := teardownGracePeriod
	propagation := metav1.DeletePropagationForeground
	err := m.resource().Delete(ctx, sanitized, metav1.DeleteOptions{
		GracePeriodSeconds: &grace,
		PropagationPolicy:  &propagation,
	})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete InferenceService %s: %w", sanitized, err)
	}
	return nil
}

// List returns the models deployed by prompt-trainer, optionally limited to
// the given roles, and updates the self-hosted model gauge.
func (m *Manager) List(ctx context.Context, roles ...Role) ([]ModelStatus, error) {
	list, err := m.resource().List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector(roles),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list InferenceServices: %w", err)
	}

	statuses := make([]ModelStatus, 0, len(list.Items))
	for _, item := range list.Items {
		isvc, err := fromUnstructured(&item)
		if err != nil {
			slog.Warn("failed to convert InferenceService", "name", item.GetName(), "error", err)
			continue
		}
		statuses = append(statuses, m.statusFromISVC(isvc))
	}

	if len(roles) == 0 {
		recordModelGauge(statuses)
	}
	return statuses, nil
}

func labelSelector(roles []Role) string {
	sel := managedByLabel + "=" + managedBy
	if len(roles) == 0 {
		return sel
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return sel + "," + roleLabel + " in (" + strings.Join(names, ",") + ")"
}

func recordModelGauge(statuses []ModelStatus) {
	metrics.SelfHostedModels.Reset()
	for _, s := range statuses {
		metrics.SelfHostedModels.WithLabelValues(string(s.Role), strconv.FormatBool(s.Ready)).Inc()
	}
}

// Get returns the status of one model.
func (m *Manager) Get(ctx context.Context, name string) (*ModelStatus, error) {
	sanitized := sanitizeName(name)
	item, err := m.resource().Get(ctx, sanitized, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get InferenceService %s: %w", sanitized, err)
	}

	isvc, err := fromUnstructured(item)
	if err != nil {
		return nil, fmt.Errorf("failed to convert InferenceService %s: %w", sanitized, err)
	}
	status := m.statusFromISVC(isvc)
	return &status, nil
}

func (m *Manager) statusFromISVC(isvc *InferenceService) ModelStatus {
	status := ModelStatus{
		Name:      isvc.Name,
		Role:      roleOf(isvc),
		CreatedAt: isvc.CreationTimestamp.Format(time.RFC3339),
	}
	if isvc.Status.IsReady() {
		status.Ready = true
		status.EndpointURL = endpointURL(isvc, m.namespace)
	} else {
		status.Message = isvc.Status.PendingReason()
	}
	return status
}

// waitForReady watches the named InferenceService until its Ready condition
// is True and returns the ready object.
func (m *Manager) waitForReady(ctx context.Context, name string, timeout time.Duration) (*InferenceService, error) {
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	watcher, err := m.resource().Watch(ctx, metav1.ListOptions{
		FieldSelector: "metadata.name=" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch InferenceService: %w", err)
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for InferenceService %s to become ready", name)
		case event, ok := <-watcher.ResultChan():
			if !ok {
				return nil, fmt.Errorf("watch channel closed for InferenceService %s", name)
			}
			if event.Type != watch.Added && event.Type != watch.Modified {
				continue
			}
			obj, ok := event.Object.(*unstructured.Unstructured)
			if !ok {
				continue
			}
			isvc, err := fromUnstructured(obj)
			if err != nil {
				slog.Warn("failed to convert watch event", "error", err)
				continue
			}
			if isvc.Status.IsReady() {
				slog.Info("model ready", "name", name, "role", roleOf(isvc))
				return isvc, nil
			}
			slog.Debug("model not ready yet", "name", name, "reason", isvc.Status.PendingReason())
		}
	}
}

func endpointURL(isvc *InferenceService, namespace string) string {
	role := roleOf(isvc)
	if base := isvc.Status.baseURL(); base != "" {
		return strings.TrimSuffix(base, "/") + role.apiPath()
	}
	return EndpointURL(isvc.Name, namespace, role)
}
