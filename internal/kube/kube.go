// SPDX-License-Identifier: MPL-2.0

// Package kube waits on cluster readiness after a module's shell phase. The
// provisioning itself always goes through kubectl/helm; this client only
// observes, it never mutates.
package kube

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// pollInterval is how often readiness conditions are re-checked.
const pollInterval = 5 * time.Second

// Client wraps a clientset for readiness polling.
type Client struct {
	clientset kubernetes.Interface
}

// Connect builds a Client from a kubeconfig path.
func Connect(kubeconfig string) (*Client, error) {
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig %s: %w", kubeconfig, err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}
	return &Client{clientset: clientset}, nil
}

// NewWithClientset wraps an existing clientset; tests use it with a fake.
func NewWithClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// WaitForNodeReady blocks until at least one node reports the Ready
// condition, or the timeout elapses.
func (c *Client) WaitForNodeReady(ctx context.Context, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
		if err != nil {
			// Transient API errors are expected while the control plane
			// settles; keep polling.
			return false, nil
		}
		for _, node := range nodes.Items {
			for _, cond := range node.Status.Conditions {
				if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
					return true, nil
				}
			}
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for a ready node: %w", err)
	}
	return nil
}

// WaitForDeploymentAvailable blocks until the named deployment has at least
// one available replica, or the timeout elapses.
func (c *Client) WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		dep, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		return dep.Status.AvailableReplicas > 0, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for deployment %s/%s: %w", namespace, name, err)
	}
	return nil
}

// WaitForDaemonSetReady blocks until the named daemonset reports every
// scheduled pod ready, or the timeout elapses. CNI rollouts are daemonsets,
// so the calico module waits on this.
func (c *Client) WaitForDaemonSetReady(ctx context.Context, namespace, name string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		ds, err := c.clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		return ds.Status.DesiredNumberScheduled > 0 &&
			ds.Status.NumberReady == ds.Status.DesiredNumberScheduled, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for daemonset %s/%s: %w", namespace, name, err)
	}
	return nil
}
