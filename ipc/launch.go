/*
Package ipc implements the production inter-worker messaging layer.

This file contains the remote deployment helper the coordinator uses to start
the worker binary on each remote machine: an SSH session per machine, the
binary and its config copied over SCP, and the worker started detached.
*/
package ipc

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"

	"github.com/dashaylan/HiveSolve/configs"
)

// remoteDir is where the worker binary and config land on each machine.
const remoteDir = "/tmp/hivesolve"

// how long to wait for all remote workers to come up
const deployTimeout = 60 * time.Second

// StartWorkers deploys binPath and confPath to every remote machine and
// starts one worker per machine, assigning ranks 1..len(remotes) in order
// (the coordinator is rank 0). It returns the number of workers started;
// fewer than requested is fatal for the caller since a missing worker stalls
// every collective.
func StartWorkers(remotes []configs.RemoteConfig, binPath, confPath string) (int, error) {
	resChan := make(chan error, len(remotes))
	for i, remote := range remotes {
		go func(remote configs.RemoteConfig, rank int) {
			resChan <- deployWorker(remote, rank, binPath, confPath)
		}(remote, i+1)
	}

	started := 0
	timeout := time.After(deployTimeout)
	for range remotes {
		select {
		case err := <-resChan:
			if err != nil {
				return started, err
			}
			started++
		case <-timeout:
			return started, fmt.Errorf("ipc: deployment timed out with %d of %d workers started", started, len(remotes))
		}
	}
	return started, nil
}

func deployWorker(remote configs.RemoteConfig, rank int, binPath, confPath string) error {
	sshConfig := &ssh.ClientConfig{
		User:            remote.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(remote.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}

	addrport := remote.Address + ":22"
	if remote.Port != "" {
		addrport = remote.Address + ":" + remote.Port
	}
	client, err := ssh.Dial("tcp", addrport, sshConfig)
	if err != nil {
		return fmt.Errorf("ipc: ssh dial %s: %v", addrport, err)
	}
	defer client.Close()

	// Kill any stale worker and recreate the staging directory.
	if err := remoteComm(client, "pkill -f "+remoteDir+"/jacobid; rm -rf "+remoteDir+" && mkdir "+remoteDir); err != nil {
		return fmt.Errorf("ipc: preparing %s on %s: %v", remoteDir, remote.Address, err)
	}

	if err := copyFile(client, binPath, remoteDir+"/jacobid", "0755"); err != nil {
		return fmt.Errorf("ipc: copying binary to %s: %v", remote.Address, err)
	}
	if err := copyFile(client, confPath, remoteDir+"/config.json", "0644"); err != nil {
		return fmt.Errorf("ipc: copying config to %s: %v", remote.Address, err)
	}

	startCmd := fmt.Sprintf("cd %s && nohup ./jacobid -config config.json -rank %d >jacobid.log 2>&1 &",
		remoteDir, rank)
	if err := remoteComm(client, startCmd); err != nil {
		return fmt.Errorf("ipc: starting worker %d on %s: %v", rank, remote.Address, err)
	}
	return nil
}

func copyFile(client *ssh.Client, local, remote, perm string) error {
	scpClient, err := scp.NewClientBySSH(client)
	if err != nil {
		return err
	}
	defer scpClient.Close()

	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()
	return scpClient.CopyFromFile(context.Background(), *f, remote, perm)
}

func remoteComm(connection *ssh.Client, command string) error {
	session, err := connection.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,     // disable echoing
		ssh.TTY_OP_ISPEED: 14400, // input speed = 14.4kbaud
		ssh.TTY_OP_OSPEED: 14400, // output speed = 14.4kbaud
	}
	if err := session.RequestPty("xterm", 80, 40, modes); err != nil {
		return err
	}
	return session.Run(command)
}
