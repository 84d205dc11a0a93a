/*
Copyright 2023 The Qovery Engine Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kubernetes

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/qovery/engine-go/pkg/models"
)

// EnsureNamespace creates the namespace when missing and applies labels.
func EnsureNamespace(ctx context.Context, client kubernetes.Interface, name string, labels map[string]string) error {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
	}
	_, err := client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

// DeleteNamespace removes the namespace; missing is not an error.
func DeleteNamespace(ctx context.Context, client kubernetes.Interface, name string) error {
	err := client.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}

// UpsertMountedFileSecret materializes a mounted file as a Secret. The
// secret holds the decoded content keyed by the file name the chart mounts.
func UpsertMountedFileSecret(ctx context.Context, client kubernetes.Interface, namespace, secretName string, file models.MountedFile, labels map[string]string) error {
	content, err := base64.StdEncoding.DecodeString(file.FileContentB64)
	if err != nil {
		return fmt.Errorf("mounted file %s has invalid base64 content: %w", file.ID, err)
	}
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: secretName, Namespace: namespace, Labels: labels},
		Data:       map[string][]byte{"content": content},
	}
	_, err = client.CoreV1().Secrets(namespace).Create(ctx, secret, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		_, err = client.CoreV1().Secrets(namespace).Update(ctx, secret, metav1.UpdateOptions{})
	}
	return err
}

// RestartDeployment triggers a rolling restart by bumping the restartedAt
// annotation, the same way kubectl rollout restart does.
func RestartDeployment(ctx context.Context, client kubernetes.Interface, namespace, name string) error {
	deploy, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return err
	}
	if deploy.Spec.Template.Annotations == nil {
		deploy.Spec.Template.Annotations = map[string]string{}
	}
	deploy.Spec.Template.Annotations["kubectl.kubernetes.io/restartedAt"] = time.Now().Format(time.RFC3339)
	_, err = client.AppsV1().Deployments(namespace).Update(ctx, deploy, metav1.UpdateOptions{})
	return err
}

// ScaleWorkloadsToZero pauses a service by zeroing the replicas of its
// deployments and statefulsets. Releases and data stay in place.
func ScaleWorkloadsToZero(ctx context.Context, client kubernetes.Interface, namespace, serviceLongID string) error {
	selector := fmt.Sprintf("%s=%s", AppLabelKey, serviceLongID)
	listOpts := metav1.ListOptions{LabelSelector: selector}
	zero := int32(0)

	deployments, err := client.AppsV1().Deployments(namespace).List(ctx, listOpts)
	if err != nil {
		return err
	}
	for i := range deployments.Items {
		d := &deployments.Items[i]
		d.Spec.Replicas = &zero
		if _, err := client.AppsV1().Deployments(namespace).Update(ctx, d, metav1.UpdateOptions{}); err != nil {
			return err
		}
	}

	statefulSets, err := client.AppsV1().StatefulSets(namespace).List(ctx, listOpts)
	if err != nil {
		return err
	}
	for i := range statefulSets.Items {
		s := &statefulSets.Items[i]
		s.Spec.Replicas = &zero
		if _, err := client.AppsV1().StatefulSets(namespace).Update(ctx, s, metav1.UpdateOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// CountNodes returns the number of worker nodes currently registered.
func CountNodes(ctx context.Context, client kubernetes.Interface) (int, error) {
	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, err
	}
	return len(nodes.Items), nil
}
