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
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/qovery/engine-go/pkg/models"
)

func TestEnsureNamespaceIsIdempotent(t *testing.T) {
	client := fake.NewSimpleClientset()
	labels := map[string]string{"qovery.com/environment-id": "env-1"}

	if err := EnsureNamespace(context.Background(), client, "z-env", labels); err != nil {
		t.Fatalf("EnsureNamespace() error: %v", err)
	}
	if err := EnsureNamespace(context.Background(), client, "z-env", labels); err != nil {
		t.Fatalf("EnsureNamespace() second call error: %v", err)
	}

	ns, err := client.CoreV1().Namespaces().Get(context.Background(), "z-env", metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ns.Labels["qovery.com/environment-id"] != "env-1" {
		t.Errorf("namespace labels = %v", ns.Labels)
	}
}

func TestDeleteNamespaceMissingIsNotAnError(t *testing.T) {
	client := fake.NewSimpleClientset()
	if err := DeleteNamespace(context.Background(), client, "absent"); err != nil {
		t.Errorf("DeleteNamespace() error: %v", err)
	}
}

func TestUpsertMountedFileSecret(t *testing.T) {
	client := fake.NewSimpleClientset()
	file := models.MountedFile{
		ID:             "file-1",
		MountPath:      "/etc/app/config",
		FileContentB64: base64.StdEncoding.EncodeToString([]byte("key=value")),
	}

	err := UpsertMountedFileSecret(context.Background(), client, "z-env", "mounted-file-abc", file, nil)
	if err != nil {
		t.Fatalf("UpsertMountedFileSecret() error: %v", err)
	}

	// Second upsert with new content must update in place.
	file.FileContentB64 = base64.StdEncoding.EncodeToString([]byte("key=other"))
	if err := UpsertMountedFileSecret(context.Background(), client, "z-env", "mounted-file-abc", file, nil); err != nil {
		t.Fatalf("second upsert error: %v", err)
	}

	secret, err := client.CoreV1().Secrets("z-env").Get(context.Background(), "mounted-file-abc", metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(secret.Data["content"]) != "key=other" {
		t.Errorf("secret content = %q, want updated value", secret.Data["content"])
	}
}

func TestUpsertMountedFileSecretRejectsBadBase64(t *testing.T) {
	client := fake.NewSimpleClientset()
	file := models.MountedFile{ID: "file-1", FileContentB64: "%%% not base64 %%%"}
	if err := UpsertMountedFileSecret(context.Background(), client, "z-env", "s", file, nil); err == nil {
		t.Error("invalid base64 content must be rejected")
	}
}

func TestScaleWorkloadsToZero(t *testing.T) {
	three := int32(3)
	client := fake.NewSimpleClientset(
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name: "app", Namespace: "z-env",
				Labels: map[string]string{AppLabelKey: "svc-1"},
			},
			Spec: appsv1.DeploymentSpec{Replicas: &three},
		},
		&appsv1.StatefulSet{
			ObjectMeta: metav1.ObjectMeta{
				Name: "db", Namespace: "z-env",
				Labels: map[string]string{AppLabelKey: "svc-1"},
			},
			Spec: appsv1.StatefulSetSpec{Replicas: &three},
		},
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name: "untouched", Namespace: "z-env",
				Labels: map[string]string{AppLabelKey: "svc-2"},
			},
			Spec: appsv1.DeploymentSpec{Replicas: &three},
		},
	)

	if err := ScaleWorkloadsToZero(context.Background(), client, "z-env", "svc-1"); err != nil {
		t.Fatalf("ScaleWorkloadsToZero() error: %v", err)
	}

	deploy, _ := client.AppsV1().Deployments("z-env").Get(context.Background(), "app", metav1.GetOptions{})
	if *deploy.Spec.Replicas != 0 {
		t.Errorf("deployment replicas = %d, want 0", *deploy.Spec.Replicas)
	}
	sts, _ := client.AppsV1().StatefulSets("z-env").Get(context.Background(), "db", metav1.GetOptions{})
	if *sts.Spec.Replicas != 0 {
		t.Errorf("statefulset replicas = %d, want 0", *sts.Spec.Replicas)
	}
	other, _ := client.AppsV1().Deployments("z-env").Get(context.Background(), "untouched", metav1.GetOptions{})
	if *other.Spec.Replicas != 3 {
		t.Errorf("unrelated deployment was scaled: %d", *other.Spec.Replicas)
	}
}

func TestRestartDeployment(t *testing.T) {
	client := fake.NewSimpleClientset(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Namespace: "z-env"},
	})

	if err := RestartDeployment(context.Background(), client, "z-env", "app"); err != nil {
		t.Fatalf("RestartDeployment() error: %v", err)
	}

	deploy, _ := client.AppsV1().Deployments("z-env").Get(context.Background(), "app", metav1.GetOptions{})
	if deploy.Spec.Template.Annotations["kubectl.kubernetes.io/restartedAt"] == "" {
		t.Error("restartedAt annotation missing")
	}
}
